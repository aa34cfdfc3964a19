package dataflow

import "errors"

var (
	ErrNoNodes = errors.New("dataflow manifest has no nodes sequence")

	ErrAlreadyStarted = errors.New("controller already started")

	ErrNotStarted = errors.New("controller was never started")
)
