// Package scraper fetches catalog pages and walks the paginated catalog.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/book-analyzer/config"
	"github.com/aluiziolira/book-analyzer/logging"
)

const (
	statusKey = "status"
	bodyKey   = "body"
)

// Page is a successfully fetched document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Fetcher issues paced GET requests through one reusable colly collector.
// It is not safe for concurrent use.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	transport *contextTransport
	headers   http.Header
	logger    *slog.Logger
	Metrics   *Metrics

	sleep func(context.Context, time.Duration) error
}

// NewFetcher builds a fetcher configured from cfg. metrics may be nil.
func NewFetcher(cfg *config.Config, logger *slog.Logger, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = true

	// Per-request timeouts come from the request context; the client timeout
	// only guards against a misconfigured context.
	collector.SetRequestTimeout(2 * maxDuration(cfg.Timeout, cfg.RobotsTimeout))

	transport := &contextTransport{base: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}}
	collector.WithTransport(transport)

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		transport: transport,
		headers:   sessionHeaders(cfg),
		logger:    logging.OrDiscard(logger),
		Metrics:   metrics,
		sleep:     pace,
	}
	f.configureHandlers()
	return f, nil
}

func sessionHeaders(cfg *config.Config) http.Header {
	h := http.Header{}
	h.Set("User-Agent", cfg.UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if cfg.AcceptLang != "" {
		h.Set("Accept-Language", cfg.AcceptLang)
	}
	return h
}

// WithTransport replaces the underlying round tripper, e.g. with a mock.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport.setBase(rt)
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		for key, values := range f.headers {
			for i, v := range values {
				if i == 0 {
					r.Headers.Set(key, v)
					continue
				}
				r.Headers.Add(key, v)
			}
		}
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(statusKey, r.StatusCode)
		r.Ctx.Put(bodyKey, r.Body)
	})

	f.collector.OnError(func(r *colly.Response, _ error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(statusKey, r.StatusCode)
		}
	})
}

// Fetch retrieves a catalog page with the configured timeout, after the
// configured request delay.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	return f.Get(ctx, pageURL, f.cfg.Timeout, f.cfg.RequestDelay)
}

// Get sleeps for delay, then issues one GET bounded by timeout. Failures are
// logged and returned classified as ErrTimeout, ErrHTTPStatus, ErrConnection
// or ErrCanceled.
func (f *Fetcher) Get(ctx context.Context, pageURL string, timeout, delay time.Duration) (*Page, error) {
	if err := f.sleep(ctx, delay); err != nil {
		return nil, f.fail(pageURL, ErrCanceled{URL: pageURL, Err: err})
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cctx := colly.NewContext()
	start := time.Now()
	release := f.transport.bind(reqCtx)
	err := f.collector.Request(http.MethodGet, pageURL, nil, cctx, nil)
	release()
	elapsed := time.Since(start)
	f.Metrics.ObserveDuration(elapsed)

	status, _ := cctx.GetAny(statusKey).(int)
	if classified := classifyError(pageURL, err, status); classified != nil {
		return nil, f.fail(pageURL, classified)
	}

	body, _ := cctx.GetAny(bodyKey).([]byte)
	f.Metrics.IncRequest("success")
	f.logger.Info("request succeeded",
		slog.String("url", pageURL),
		slog.Int("status", status),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", elapsed),
	)
	return &Page{
		URL:        pageURL,
		StatusCode: status,
		Body:       body,
		Duration:   elapsed,
	}, nil
}

func (f *Fetcher) fail(pageURL string, err error) error {
	category := errorTypeLabel(err)
	f.Metrics.IncRequest("failed")
	f.Metrics.IncError(category)

	attrs := []any{
		slog.String("url", pageURL),
		slog.String("category", category),
		slog.Any("error", err),
	}
	if code := StatusCode(err); code != 0 {
		attrs = append(attrs, slog.Int("status", code))
	}
	if category == "canceled" {
		f.logger.Warn("request canceled", attrs...)
	} else {
		f.logger.Error("request error", attrs...)
	}
	return err
}

// pace blocks for d or until ctx is done.
func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// contextTransport attaches the context of the request in flight. colly
// builds its own *http.Request, so the binding happens at the transport.
type contextTransport struct {
	mu   sync.Mutex
	base http.RoundTripper
	ctx  context.Context
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	base, ctx := t.base, t.ctx
	t.mu.Unlock()

	if ctx != nil {
		req = req.WithContext(ctx)
	}
	return base.RoundTrip(req)
}

func (t *contextTransport) bind(ctx context.Context) func() {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.ctx = nil
		t.mu.Unlock()
	}
}

func (t *contextTransport) setBase(rt http.RoundTripper) {
	t.mu.Lock()
	t.base = rt
	t.mu.Unlock()
}
