package http

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

type AuthType string

const (
	AuthType_None   AuthType = "none"
	AuthType_Bearer AuthType = "bearer"
	AuthType_Header AuthType = "header"
)

type ClientConfig struct {
	AuthType        AuthType
	BearerToken     string
	HeaderAuthKey   string
	HeaderAuthValue string

	// Headers are set on every request unless the request already has them.
	Headers map[string]string

	Timeout time.Duration
	Base    http.RoundTripper
}

// NewClient builds an *http.Client whose transport applies the configured
// authentication and default headers.
func NewClient(config ClientConfig) (*http.Client, error) {
	base := config.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var transport http.RoundTripper = base

	if len(config.Headers) > 0 {
		transport = &defaultHeadersTransport{
			headers: config.Headers,
			base:    transport,
		}
	}

	switch config.AuthType {
	case "", AuthType_None:
	case AuthType_Bearer:
		if config.BearerToken == "" {
			return nil, errors.New("bearer token is required")
		}
		transport = &bearerAuthTransport{
			token: config.BearerToken,
			base:  transport,
		}
	case AuthType_Header:
		key := formatHeaderKey(config.HeaderAuthKey)
		if key == "" {
			return nil, errors.New("invalid header key")
		}
		transport = &headerAuthTransport{
			key:   key,
			value: config.HeaderAuthValue,
			base:  transport,
		}
	default:
		return nil, errors.New("invalid auth type")
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}, nil
}

type bearerAuthTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

type headerAuthTransport struct {
	key   string
	value string
	base  http.RoundTripper
}

func (t *headerAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(t.key, t.value)
	return t.base.RoundTrip(req)
}

type defaultHeadersTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *defaultHeadersTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, value := range t.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	return t.base.RoundTrip(req)
}

func formatHeaderKey(key string) string {
	parts := strings.Fields(key)
	if len(parts) == 0 {
		return ""
	}

	formattedParts := make([]string, len(parts))
	for i, part := range parts {
		formattedParts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}

	return strings.Join(formattedParts, "-")
}
