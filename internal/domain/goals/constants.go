package goals

type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

const (
	NotificationGoalComment = "goal_comment"

	MinProgress = 0
	MaxProgress = 100

	maxCommentLength = 2000
)

// StatusFor derives a goal's status from its progress percentage.
func StatusFor(progress int) Status {
	switch {
	case progress >= MaxProgress:
		return StatusCompleted
	case progress > MinProgress:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

func clampProgress(progress int) int {
	return min(max(progress, MinProgress), MaxProgress)
}
