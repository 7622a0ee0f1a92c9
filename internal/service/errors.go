package service

import "errors"

// Configuration errors: these cannot resolve on their own and must surface to
// whoever edits templates and schedules; they are never retried.
var (
	ErrBadRecurrence = errors.New("invalid recurrence rule")
	ErrBadCadence    = errors.New("invalid cadence spec")
)

// ErrInstanceDone is returned for mutations of a completed instance, which is
// immutable except for its notification records.
var ErrInstanceDone = errors.New("instance already completed")
