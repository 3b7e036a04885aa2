package goals

import "time"

// Goal is a SMART goal owned by one employee. Status is derived from
// Progress and never set directly.
type Goal struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	CreatedBy   string    `json:"createdBy"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Specific    string    `json:"specific"`
	Measurable  string    `json:"measurable"`
	Achievable  string    `json:"achievable"`
	Relevant    string    `json:"relevant"`
	TimeBound   time.Time `json:"timeBound"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goalId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type Draft struct {
	EmployeeID  string
	CreatedBy   string
	Title       string
	Description string
	Specific    string
	Measurable  string
	Achievable  string
	Relevant    string
	TimeBound   time.Time
}

// Details carries the editable SMART fields; nil means unchanged.
type Details struct {
	Title       *string
	Description *string
	Specific    *string
	Measurable  *string
	Achievable  *string
	Relevant    *string
	TimeBound   *time.Time
}
