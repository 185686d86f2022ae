package scheduler

import "errors"

var (
	ErrNoJobs               = errors.New("no jobs registered")
	ErrJobAlreadyRegistered = errors.New("job already registered")
)
