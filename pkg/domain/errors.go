package domain

import "errors"

var (
	// ErrNoClassification is returned when a classifier could not produce a usable verdict
	ErrNoClassification = errors.New("no classification")

	// ErrFetchExhausted is returned when every fetch attempt failed
	ErrFetchExhausted = errors.New("all fetch attempts failed")

	// ErrRunInProgress is returned when a trigger fires while a run is still going
	ErrRunInProgress = errors.New("run already in progress")

	// ErrMissingConfig is returned when required configuration is absent
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrNotifierDisabled is returned when a notifier lacks credentials
	ErrNotifierDisabled = errors.New("notifier disabled")

	// ErrNoProxyFound is returned when no candidate proxy passed verification
	ErrNoProxyFound = errors.New("no working proxy found")
)
