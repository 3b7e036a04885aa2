package evaluations

import "errors"

var (
	ErrEvaluationNotFound  = errors.New("evaluation not found")
	ErrInvalidEvaluation   = errors.New("invalid evaluation")
	ErrEvaluationCompleted = errors.New("evaluation is completed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrUnknownFramework    = errors.New("unknown framework")
	ErrUnknownCategory     = errors.New("unknown rating category")
	ErrRatingOutOfScale    = errors.New("rating not on framework scale")
)
