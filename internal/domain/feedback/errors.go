package feedback

import "errors"

var (
	ErrInvalidFeedback  = errors.New("invalid feedback")
	ErrFeedbackNotFound = errors.New("feedback not found")
)
