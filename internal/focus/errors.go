package focus

import "errors"

var (
	ErrWindowTimeout      = errors.New("timed out waiting for new window")
	ErrWindowSetInvariant = errors.New("could not identify exactly one new window")
	ErrUnknownSession     = errors.New("unknown session")
	ErrSessionActive      = errors.New("session already active")
	ErrNotInitialized     = errors.New("manager not initialized")
	ErrAlreadyInitialized = errors.New("manager already initialized")
)
