package feedback

import "time"

type Feedback struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	AuthorID   string    `json:"authorId"`
	Type       Type      `json:"type"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Draft struct {
	EmployeeID string
	AuthorID   string
	Type       Type
	Content    string
}
