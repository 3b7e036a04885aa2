package feedback

type Type string

const (
	TypeScheduled Type = "SCHEDULED"
	TypeAdHoc     Type = "AD_HOC"
)

func (t Type) Valid() bool {
	return t == TypeScheduled || t == TypeAdHoc
}

const (
	NotificationFeedbackReceived = "feedback_received"

	minContentLength = 10
)
