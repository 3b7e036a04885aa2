package tasks

type Type string

const (
	TypeGoalUpdate Type = "GOAL_UPDATE"
	TypeEvaluation Type = "EVALUATION"
	TypeFeedback   Type = "FEEDBACK"
)

func (t Type) Valid() bool {
	switch t {
	case TypeGoalUpdate, TypeEvaluation, TypeFeedback:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

const (
	CycleParentTitle = "Team Goals Update & Review"
	CycleChildTitle  = "Update Goals & Self-Assessment"
)

// Mutation labels reported to the Observer.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpRollup = "rollup"
)
