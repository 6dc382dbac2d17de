package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Bearer(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{
		AuthType:    AuthType_Bearer,
		BearerToken: "hf_token",
		Headers:     map[string]string{"Accept": "application/json"},
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/plain")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer hf_token", got.Get("Authorization"))
	assert.Equal(t, "text/plain", got.Get("Accept"), "request headers win over defaults")
	assert.Empty(t, req.Header.Get("Authorization"), "caller's request must not be mutated")
}

func TestNewClient_Header(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{
		AuthType:        AuthType_Header,
		HeaderAuthKey:   "x api key",
		HeaderAuthValue: "secret",
	})
	require.NoError(t, err)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "secret", got.Get("X-Api-Key"))
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(ClientConfig{AuthType: AuthType_Bearer})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{AuthType: AuthType_Header, HeaderAuthKey: "  "})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{AuthType: "oauth"})
	assert.Error(t, err)
}
