package frameworks

import "errors"

var (
	ErrFrameworkNotFound = errors.New("framework not found")
	ErrInvalidFramework  = errors.New("invalid framework")
)
