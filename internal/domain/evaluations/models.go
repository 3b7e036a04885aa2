package evaluations

import (
	"time"

	"perfhub/internal/domain/frameworks"
)

type Rating struct {
	CategoryID string  `json:"categoryId"`
	Value      float64 `json:"value"`
	Label      string  `json:"label,omitempty"`
	Comment    string  `json:"comment"`
}

type Evaluation struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employeeId"`
	SupervisorID string `json:"supervisorId"`
	Period       string `json:"period"`
	FrameworkID  string `json:"frameworkId"`
	// Framework is the rubric as it was when the evaluation was created.
	Framework       frameworks.Framework `json:"framework"`
	Ratings         []Rating             `json:"ratings"`
	OverallComments string               `json:"overallComments"`
	Strengths       []string             `json:"strengths"`
	Improvements    []string             `json:"improvements"`
	Status          Status               `json:"status"`
	OverallScore    float64              `json:"overallScore"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// Draft is the input to Create.
type Draft struct {
	EmployeeID      string
	SupervisorID    string
	Period          string
	FrameworkID     string
	Ratings         []Rating
	OverallComments string
	Strengths       []string
	Improvements    []string
}

// Changes lists editable fields; nil means unchanged.
type Changes struct {
	Period          *string
	Ratings         *[]Rating
	OverallComments *string
	Strengths       *[]string
	Improvements    *[]string
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	EmployeeID   string
	SupervisorID string
	Status       Status
}

func (f Filter) Match(e Evaluation) bool {
	if f.EmployeeID != "" && e.EmployeeID != f.EmployeeID {
		return false
	}
	if f.SupervisorID != "" && e.SupervisorID != f.SupervisorID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}

// Score is the arithmetic mean of the rating values, or 0 with no ratings.
func Score(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range ratings {
		sum += r.Value
	}
	return sum / float64(len(ratings))
}
