package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrProviderFailure    = errors.New("provider failure")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrJobTerminal        = errors.New("job already terminal")
)

// GenerationError is raised when the generation stage exhausts its retry
// budget. It is the only pipeline failure that is fatal to the job.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("image generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IllegalTransitionError flags an attempted lifecycle move that is absent
// from the transition table. It indicates a bug in the caller, not a job
// failure.
type IllegalTransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal job transition %s -> %s", e.From, e.To)
}
