package scheduler

import "errors"

// Sentinel kinds for scheduler errors.
var (
	ErrStopped   = errors.New("scheduler stopped")
	ErrQueueFull = errors.New("scheduler queue full")
)
