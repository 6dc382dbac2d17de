package types

import "errors"

var (
	// ErrProviderNotSet is returned when a provider is not configured
	ErrProviderNotSet = errors.New("provider not set")

	// ErrEmptyResponse is returned when the provider returns an empty response
	ErrEmptyResponse = errors.New("empty response from provider")
)
