package tasks

import "errors"

var (
	ErrInvalidTaskSpec   = errors.New("invalid task spec")
	ErrTaskNotFound      = errors.New("task not found")
	ErrDuplicateTask     = errors.New("duplicate task id")
	ErrNotParentTask     = errors.New("task is not a parent task")
	ErrNoMembersSelected = errors.New("no members selected")
	ErrUnknownFramework  = errors.New("unknown framework")
	ErrCycleLaunchFailed = errors.New("cycle launch failed")
)
