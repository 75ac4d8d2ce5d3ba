package lock

import "errors"

// ErrLockTimeout means the key stayed held by someone else for the whole wait.
var ErrLockTimeout = errors.New("timed out waiting for record lock")
