package keel

import "errors"

var (
	// ErrInvalidConcurrency is returned for a non-positive concurrency.
	ErrInvalidConcurrency = errors.New("keel: concurrency must be positive")

	// ErrNilOption is returned by New when given a nil Option.
	ErrNilOption = errors.New("keel: nil option")
)
