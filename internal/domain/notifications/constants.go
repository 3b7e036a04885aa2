package notifications

// Types raised by the task, evaluation, feedback and goal services.
const (
	TypeReviewAssigned      = "review_assigned"
	TypeEvaluationStarted   = "evaluation_started"
	TypeEvaluationCompleted = "evaluation_completed"
	TypeFeedbackReceived    = "feedback_received"
	TypeGoalComment         = "goal_comment"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)
