package truthsocial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/flowbaker/signalwatch/pkg/domain"
	sighttp "github.com/flowbaker/signalwatch/pkg/integrations/http"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL   = "https://truthsocial.com"
	DefaultAccountID = "107780257626128497"

	DefaultMaxAttempts = 5
	DefaultBackoff     = 5 * time.Second
	DefaultTimeout     = 25 * time.Second

	maxBackoff = 2 * time.Minute
	readLimit  = 8 << 20
)

// ProxyPicker finds a replacement proxy after a failed attempt. It must
// not hand back any of the excluded proxies.
type ProxyPicker interface {
	Pick(ctx context.Context, exclude ...string) (string, error)
}

// Client fetches an account's statuses from a Mastodon-compatible API.
type Client struct {
	baseURL     string
	accountID   string
	clearance   string
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	picker      ProxyPicker

	mu     sync.Mutex
	proxy  string
	failed []string
}

type ClientDependencies struct {
	BaseURL   string
	AccountID string

	// CFClearance is sent as the cf_clearance cookie.
	CFClearance string

	// Proxy is used for the first attempt. Empty means direct.
	Proxy  string
	Picker ProxyPicker

	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
}

func NewClient(deps ClientDependencies) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(deps.BaseURL, "/"),
		accountID:   deps.AccountID,
		clearance:   deps.CFClearance,
		proxy:       deps.Proxy,
		picker:      deps.Picker,
		maxAttempts: deps.MaxAttempts,
		backoff:     deps.Backoff,
		timeout:     deps.Timeout,
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.accountID == "" {
		c.accountID = DefaultAccountID
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.backoff <= 0 {
		c.backoff = DefaultBackoff
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	return c
}

// statusError marks a response status that is worth another attempt.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.code)
}

func (c *Client) StatusesURL() string {
	return fmt.Sprintf("%s/api/v1/accounts/%s/statuses?exclude_replies=true&only_replies=false&with_muted=true",
		c.baseURL, url.PathEscape(c.accountID))
}

// Proxy returns the proxy the next attempt will use.
func (c *Client) Proxy() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.proxy
}

// FetchPosts returns the account's latest statuses, newest first.
func (c *Client) FetchPosts(ctx context.Context) ([]domain.Post, error) {
	maxDelay := maxBackoff
	if c.backoff >= maxDelay {
		maxDelay = 2 * c.backoff
	}

	policy := retrypolicy.NewBuilder[[]domain.Post]().
		HandleIf(func(_ []domain.Post, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		WithBackoff(c.backoff, maxDelay).
		WithMaxRetries(c.maxAttempts - 1).
		Build()

	c.mu.Lock()
	c.failed = nil
	c.mu.Unlock()

	attempt := 0
	posts, err := failsafe.With(policy).WithContext(ctx).Get(func() ([]domain.Post, error) {
		attempt++
		return c.attempt(ctx, attempt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Int("attempts", attempt).Msg("All retries failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchExhausted, err)
	}

	for i := range posts {
		posts[i].Text = StripHTML(posts[i].Content)
	}

	return posts, nil
}

func (c *Client) attempt(ctx context.Context, attempt int) ([]domain.Post, error) {
	proxy := c.Proxy()
	target := c.StatusesURL()

	via := "direct"
	if proxy != "" {
		via = "proxy"
	}

	log.Info().
		Int("attempt", attempt).
		Int("max_attempts", c.maxAttempts).
		Str("host", hostOf(target)).
		Str("via", via).
		Msg("Fetching posts")

	posts, err := c.get(ctx, target, proxy)
	if err == nil {
		return posts, nil
	}

	log.Warn().Err(err).Int("attempt", attempt).Msg("Fetch attempt failed")

	if ctx.Err() == nil && attempt < c.maxAttempts {
		c.rotateProxy(ctx, proxy)
	}

	return nil, err
}

func (c *Client) get(ctx context.Context, target, proxy string) ([]domain.Post, error) {
	client, err := c.httpClient(proxy)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", randomUserAgent())
	if c.clearance != "" {
		req.AddCookie(&http.Cookie{Name: "cf_clearance", Value: c.clearance})
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode}
	}

	var posts []domain.Post
	if err := json.NewDecoder(io.LimitReader(resp.Body, readLimit)).Decode(&posts); err != nil {
		return nil, fmt.Errorf("failed to decode statuses: %w", err)
	}

	return posts, nil
}

func (c *Client) httpClient(proxy string) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               nil,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
	}

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return sighttp.NewClient(sighttp.ClientConfig{
		Headers: baseHeaders,
		Timeout: c.timeout,
		Base:    transport,
	})
}

// rotateProxy drops the proxy that just failed and hunts for a fresh
// one. When nothing turns up the next attempt goes direct.
func (c *Client) rotateProxy(ctx context.Context, failed string) {
	c.mu.Lock()
	if failed != "" && !slices.Contains(c.failed, failed) {
		c.failed = append(c.failed, failed)
	}
	exclude := slices.Clone(c.failed)
	c.mu.Unlock()

	if failed != "" {
		log.Warn().Str("proxy", failed).Msg("Discarding proxy")
	}

	next := ""
	if c.picker != nil {
		picked, err := c.picker.Pick(ctx, exclude...)
		if err != nil && !errors.Is(err, domain.ErrNoProxyFound) {
			log.Debug().Err(err).Msg("Proxy picker failed")
		}
		next = picked
	}

	c.mu.Lock()
	c.proxy = next
	c.mu.Unlock()

	if next == "" {
		log.Info().Msg("No replacement proxy, next attempt goes direct")
		return
	}

	log.Info().Str("proxy", next).Msg("Switched proxy after failure")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return u.Host
}
