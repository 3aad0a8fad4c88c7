package store

import "errors"

var (
	// ErrLockTimeout is returned when a state file stays locked past lockWait.
	ErrLockTimeout = errors.New("timed out waiting for state file lock")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// errLockBusy signals a single failed non-blocking lock attempt; it is
	// retried and never escapes the package.
	errLockBusy = errors.New("state file lock busy")
)
