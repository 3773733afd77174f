package domain

import "errors"

// Input errors are returned synchronously and leave state untouched.
var (
	ErrDuplicateTarget = errors.New("target already exists")
	ErrNotFound        = errors.New("target not found")
	ErrInvalidTarget   = errors.New("invalid target")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrNoTargets       = errors.New("no targets configured")
	ErrAlreadyRunning  = errors.New("monitoring already running")
	ErrNotRunning      = errors.New("monitoring not running")
	ErrChannelUnusable = errors.New("notification channel not configured")
	ErrStopTimeout     = errors.New("scheduler did not stop within grace period")
)
