package domain

import "errors"

var (
	// ErrInvalidRequest means the request cannot be scored, typically because
	// the destination is missing. Recovered locally by blocking submission.
	ErrInvalidRequest = errors.New("invalid route request: destination is required")

	// ErrLocationUnavailable means the device position was denied or could not
	// be determined. Surfaces as a user-visible message; the origin field
	// stays editable.
	ErrLocationUnavailable = errors.New("device location unavailable")

	// ErrTimeout means a resolver, scorer, or feed call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrResolutionAmbiguous means the resolver returned candidates but none
	// was auto-selected. Not a failure: the caller should prompt the rider to
	// pick one.
	ErrResolutionAmbiguous = errors.New("location resolution ambiguous")
)
