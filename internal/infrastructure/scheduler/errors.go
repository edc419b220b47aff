package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a sweep is requested on a
	// stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSweepInProgress is returned when a sweep is already running
	ErrSweepInProgress = errors.New("sweep already in progress")
)
