package evaluations

type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusCompleted     Status = "COMPLETED"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

var transitions = map[Status][]Status{
	StatusDraft:         {StatusInProgress, StatusPendingReview},
	StatusInProgress:    {StatusPendingReview},
	StatusPendingReview: {StatusInProgress, StatusCompleted},
	StatusCompleted:     {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	NotificationEvaluationStarted   = "evaluation_started"
	NotificationEvaluationCompleted = "evaluation_completed"
)
