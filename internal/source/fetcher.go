package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/fixit3d/internal/cache"
	"github.com/ppiankov/fixit3d/internal/model"
	"github.com/ppiankov/fixit3d/internal/throttle"
	"github.com/ppiankov/fixit3d/internal/util"
)

// fetchSleepFunc is replaceable in tests
var fetchSleepFunc = time.Sleep

// ErrDisallowed is returned when robots.txt forbids a request
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Request describes one API call
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
	// Cacheable responses may be served from and stored in the page cache
	Cacheable bool
}

// Response is a fetched API response
type Response struct {
	Body      []byte
	FromCache bool
}

// Fetcher performs HTTP requests for all adapters
type Fetcher struct {
	httpClient    *http.Client
	userAgent     string
	maxBytes      int64
	maxModelBytes int64
	maxRetries    int
	limiter       *throttle.Limiter
	cache         cache.Cache
	robots        *util.RobotsChecker
}

// NewFetcher creates a Fetcher; limiter and pageCache may be nil
func NewFetcher(cfg model.HTTPConfig, limiter *throttle.Limiter, pageCache cache.Cache) *Fetcher {
	if pageCache == nil {
		pageCache = cache.Nop{}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:     cfg.UserAgent,
		maxBytes:      cfg.MaxBodyBytes,
		maxModelBytes: cfg.MaxModelBytes,
		maxRetries:    maxRetries,
		limiter:       limiter,
		cache:         pageCache,
	}

	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}

	return f
}

// FetchWithRetry performs the request, retrying transient failures with backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, req Request) (*Response, error) {
	var key string
	if req.Cacheable {
		key = cache.Key(req.Method, req.URL, req.Body)
		if body, found := f.cache.Get(key); found {
			return &Response{Body: body, FromCache: true}, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * time.Second)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		resp, err := f.Do(ctx, req)
		if err == nil {
			if req.Cacheable {
				_ = f.cache.Set(key, resp.Body)
			}
			return resp, nil
		}

		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", f.maxRetries, lastErr)
}

// Do performs a single attempt
func (f *Fetcher) Do(ctx context.Context, req Request) (*Response, error) {
	if err := f.checkRobots(ctx, req.URL); err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, req.URL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, err
	}

	return &Response{Body: data}, nil
}

// Download fetches a model file, bounded by the model size limit
func (f *Fetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.checkRobots(ctx, rawURL); err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	return readLimited(resp.Body, f.maxModelBytes)
}

func (f *Fetcher) checkRobots(ctx context.Context, rawURL string) error {
	if f.robots == nil {
		return nil
	}

	allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("robots: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}

	if delay > 0 && f.limiter != nil {
		if parsed, err := url.Parse(rawURL); err == nil {
			f.limiter.SetHostDelay(parsed.Host, delay)
		}
	}
	return nil
}

// readLimited reads at most limit bytes; limit <= 0 means unbounded
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("read body: exceeds %d bytes", limit)
	}
	return data, nil
}

// isRetryableFetchError reports whether err is transient: 5xx, 429 or a
// connection-level failure
func isRetryableFetchError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	return strings.HasPrefix(err.Error(), "fetch: ")
}
