package proxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCheckURL      = "https://api.ipify.org?format=json"
	DefaultMaxCandidates = 30               // per list
	DefaultPickerTimeout = 20 * time.Second // whole hunt
	DefaultTestTimeout   = 5 * time.Second  // one probe
	DefaultWorkers       = 20
	DefaultCacheTTL      = 30 * time.Minute

	listFetchTimeout = 7 * time.Second
)

// DefaultSources are public raw lists of HTTP proxies, one host:port per line.
var DefaultSources = []string{
	"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/main/http.txt",
	"https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/proxies/http.txt",
	"https://raw.githubusercontent.com/roosterkid/openproxylist/main/HTTPS_RAW.txt",
	"https://raw.githubusercontent.com/mmpx12/proxy-list/master/http.txt",
	"https://raw.githubusercontent.com/jetkai/proxy-list/main/online-proxies/txt/proxies-http.txt",
}

// Picker hunts for a working free proxy.
type Picker struct {
	sources       []string
	checkURL      string
	maxCandidates int
	workers       int
	pickerTimeout time.Duration
	testTimeout   time.Duration
	cache         domain.ProxyCache
	cacheTTL      time.Duration
	listClient    *http.Client
}

type PickerDependencies struct {
	Sources       []string
	CheckURL      string
	MaxCandidates int
	Workers       int
	PickerTimeout time.Duration
	TestTimeout   time.Duration

	// Cache is optional. When set, the last working proxy is tried first.
	Cache    domain.ProxyCache
	CacheTTL time.Duration
}

func NewPicker(deps PickerDependencies) *Picker {
	p := &Picker{
		sources:       deps.Sources,
		checkURL:      deps.CheckURL,
		maxCandidates: deps.MaxCandidates,
		workers:       deps.Workers,
		pickerTimeout: deps.PickerTimeout,
		testTimeout:   deps.TestTimeout,
		cache:         deps.Cache,
		cacheTTL:      deps.CacheTTL,
		listClient:    &http.Client{Timeout: listFetchTimeout},
	}

	if len(p.sources) == 0 {
		p.sources = DefaultSources
	}
	if p.checkURL == "" {
		p.checkURL = DefaultCheckURL
	}
	if p.maxCandidates <= 0 {
		p.maxCandidates = DefaultMaxCandidates
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.pickerTimeout <= 0 {
		p.pickerTimeout = DefaultPickerTimeout
	}
	if p.testTimeout <= 0 {
		p.testTimeout = DefaultTestTimeout
	}
	if p.cacheTTL <= 0 {
		p.cacheTTL = DefaultCacheTTL
	}

	return p
}

// Pick returns a verified proxy URL or domain.ErrNoProxyFound. Proxies in
// exclude are never returned, and a cached one is dropped from the cache.
func (p *Picker) Pick(ctx context.Context, exclude ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.pickerTimeout)
	defer cancel()

	skip := make(map[string]struct{}, len(exclude))
	for _, proxy := range exclude {
		if proxy = Normalize(proxy); proxy != "" {
			skip[proxy] = struct{}{}
		}
	}

	if cached := p.cached(ctx, skip); cached != "" {
		log.Info().Str("proxy", cached).Msg("Reusing cached proxy")
		return cached, nil
	}

	sources := append([]string(nil), p.sources...)
	rand.Shuffle(len(sources), func(i, j int) { sources[i], sources[j] = sources[j], sources[i] })

	for _, source := range sources {
		if ctx.Err() != nil {
			break
		}

		pool, err := p.loadList(ctx, source)
		if err != nil {
			log.Debug().Err(err).Str("source", source).Msg("Proxy source failed")
			continue
		}

		pool = slices.DeleteFunc(pool, func(candidate string) bool {
			_, excluded := skip[Normalize(candidate)]
			return excluded
		})
		if len(pool) == 0 {
			continue
		}

		log.Info().Int("candidates", len(pool)).Str("source", hostOf(source)).Msg("Testing proxies")

		if found := p.probe(ctx, pool); found != "" {
			log.Info().Str("proxy", found).Msg("Found working proxy")
			p.remember(ctx, found)
			return found, nil
		}
	}

	return "", domain.ErrNoProxyFound
}

// Works reports whether the proxy can fetch the check URL.
func (p *Picker) Works(ctx context.Context, proxy string) bool {
	proxyURL, err := url.Parse(Normalize(proxy))
	if err != nil {
		return false
	}

	transport := &http.Transport{
		Proxy:             http.ProxyURL(proxyURL),
		DisableKeepAlives: true,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{Transport: transport, Timeout: p.testTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.checkURL, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// Normalize adds the http scheme to bare host:port candidates.
func Normalize(proxy string) string {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" || strings.Contains(proxy, "://") {
		return proxy
	}

	return "http://" + proxy
}

func (p *Picker) probe(ctx context.Context, pool []string) string {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var (
		once   sync.Once
		winner string
	)

	for _, candidate := range pool {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if p.Works(gctx, candidate) {
				once.Do(func() {
					winner = Normalize(candidate)
					cancel()
				})
			}
			return nil
		})
	}

	_ = g.Wait()

	return winner
}

func (p *Picker) loadList(ctx context.Context, source string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.listClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var pool []string
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, 4<<20))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pool = append(pool, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > p.maxCandidates {
		pool = pool[:p.maxCandidates]
	}

	return pool, nil
}

func (p *Picker) cached(ctx context.Context, skip map[string]struct{}) string {
	if p.cache == nil {
		return ""
	}

	proxy, err := p.cache.Get(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Proxy cache read failed")
		return ""
	}

	proxy = Normalize(proxy)
	if proxy == "" {
		return ""
	}

	if _, excluded := skip[proxy]; excluded || !p.Works(ctx, proxy) {
		if err := p.cache.Delete(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to drop cached proxy")
		}
		return ""
	}

	return proxy
}

func (p *Picker) remember(ctx context.Context, proxy string) {
	if p.cache == nil {
		return
	}

	if err := p.cache.Put(ctx, proxy, p.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache proxy")
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return u.Host
}
