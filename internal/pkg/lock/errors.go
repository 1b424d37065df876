package lock

import "errors"

// Lock-related errors.
var (
	// ErrLockTimeout is returned when a lock cannot be acquired before the context deadline.
	ErrLockTimeout = errors.New("lock acquisition timeout")
)
