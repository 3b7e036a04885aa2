package goals

import "errors"

var (
	ErrInvalidGoal  = errors.New("invalid goal")
	ErrGoalNotFound = errors.New("goal not found")
)
