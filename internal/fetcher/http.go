package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/halcyonpay/amlscreen/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxAttempts  int
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the per-host rate limiters for the authority
// download hosts. The OFAC service is fetched twice per refresh (SDN and
// consolidated), the rest once.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"sanctionslistservice.ofac.treas.gov": rate.NewLimiter(2, 2),
		"scsanctions.un.org":                  rate.NewLimiter(1, 1),
		"webgate.ec.europa.eu":                rate.NewLimiter(1, 1),
		"www.sesam.search.admin.ch":           rate.NewLimiter(1, 1),
	}
}

// HTTPFetcher downloads feed documents with transient-error retry, a
// per-host circuit breaker and per-host rate limiting.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	retry    resilience.RetryConfig
	breakers *resilience.ServiceBreakers

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "amlscreen/1.0"
	}
	limiters := DefaultRateLimiters()
	for host, lim := range opts.RateLimiters {
		limiters[host] = lim
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxAttempts

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		retry:    retry,
		breakers: resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		limiters: limiters,
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(4, 4)
	f.limiters[host] = lim
	return lim
}

// Fetch downloads the URL, retrying transient failures (timeouts, 429, 5xx)
// with backoff. Repeated failures open the host's circuit breaker so the
// remaining retries fail fast.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	host := hostOf(rawURL)
	breaker := f.breakers.Get(host)

	retry := f.retry
	retry.OnRetry = resilience.RetryLogger("fetcher", rawURL)

	res, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*Result, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*Result, error) {
			return f.fetchOnce(ctx, rawURL)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: download %s", rawURL)
	}
	return res, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.limiterFor(hostOf(rawURL)).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "fetcher: read body"), 0)
	}
	if len(body) == 0 {
		return nil, resilience.NewTransientError(eris.Errorf("fetcher: empty body from %s", rawURL), 0)
	}

	return &Result{
		Body:        body,
		ETag:        resp.Header.Get("ETag"),
		RetrievedAt: time.Now().UTC(),
	}, nil
}
