package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/aluiziolira/book-analyzer/config"
)

const testBaseURL = "http://example.test"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.RequestDelay = 0
	cfg.PageDelay = 0
	cfg.Timeout = 2 * time.Second
	cfg.RobotsTimeout = time.Second
	return cfg
}

func newTestFetcher(t *testing.T, cfg *config.Config) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()
	f, err := NewFetcher(cfg, nil, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)
	return f, transport
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "none"},
		{name: "ok status", err: nil, statusCode: http.StatusOK, expected: "none"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "canceled", err: fmt.Errorf("get: %w", context.Canceled), statusCode: 0, expected: "canceled"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "unknown transport error", err: errors.New("some other error"), statusCode: 0, expected: "connection"},
		{name: "not found", err: errors.New("Not Found"), statusCode: http.StatusNotFound, expected: "http_status"},
		{name: "server error without err", err: nil, statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "no content rejected by collector", err: errors.New("No Content"), statusCode: http.StatusNoContent, expected: "http_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError("http://example.test/", tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestFetcherSuccessSendsSessionHeaders(t *testing.T) {
	cfg := testConfig()
	f, transport := newTestFetcher(t, cfg)

	url := PageURL(cfg.BaseURL, 1)
	transport.RegisterResponder("GET", url, func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("User-Agent"); got != cfg.UserAgent {
			return httpmock.NewStringResponse(http.StatusBadRequest, "bad agent "+got), nil
		}
		if req.Header.Get("Accept-Language") != cfg.AcceptLang {
			return httpmock.NewStringResponse(http.StatusBadRequest, "bad language"), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, "<html>ok</html>"), nil
	})

	page, err := f.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.StatusCode != http.StatusOK || string(page.Body) != "<html>ok</html>" {
		t.Fatalf("page = %d %q", page.StatusCode, page.Body)
	}
	if got := counterValue(f.Metrics.RequestsTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("success requests = %v, want 1", got)
	}
}

func TestFetcherClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		expected  string
		status    int
	}{
		{
			name:      "not found",
			responder: httpmock.NewStringResponder(http.StatusNotFound, "missing"),
			expected:  "http_status",
			status:    http.StatusNotFound,
		},
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(http.StatusServiceUnavailable, ""),
			expected:  "http_status",
			status:    http.StatusServiceUnavailable,
		},
		{
			name:      "connection refused",
			responder: httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}),
			expected:  "connection",
		},
		{
			name: "timeout",
			responder: func(req *http.Request) (*http.Response, error) {
				<-req.Context().Done()
				return nil, req.Context().Err()
			},
			expected: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Timeout = 50 * time.Millisecond
			f, transport := newTestFetcher(t, cfg)

			url := PageURL(cfg.BaseURL, 1)
			transport.RegisterResponder("GET", url, tt.responder)

			page, err := f.Fetch(context.Background(), url)
			if err == nil {
				t.Fatalf("expected error, got page %+v", page)
			}
			if page != nil {
				t.Fatalf("failed fetch must not return content")
			}
			if got := errorTypeLabel(err); got != tt.expected {
				t.Fatalf("category = %q, want %q (err=%v)", got, tt.expected, err)
			}
			if got := StatusCode(err); got != tt.status {
				t.Fatalf("status = %d, want %d", got, tt.status)
			}
			if got := counterValue(f.Metrics.ErrorsTotal.WithLabelValues(tt.expected)); got != 1 {
				t.Fatalf("errors_total{%s} = %v, want 1", tt.expected, got)
			}
		})
	}
}

func TestFetcherSleepsBeforeRequest(t *testing.T) {
	cfg := testConfig()
	cfg.RequestDelay = 750 * time.Millisecond
	f, transport := newTestFetcher(t, cfg)

	var events []string
	f.sleep = func(_ context.Context, d time.Duration) error {
		events = append(events, "sleep "+d.String())
		return nil
	}
	url := PageURL(cfg.BaseURL, 1)
	transport.RegisterResponder("GET", url, func(req *http.Request) (*http.Response, error) {
		events = append(events, "request")
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})

	if _, err := f.Fetch(context.Background(), url); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := strings.Join(events, ","); got != "sleep 750ms,request" {
		t.Fatalf("events = %s", got)
	}
}

func TestFetcherCanceledDuringDelay(t *testing.T) {
	cfg := testConfig()
	cfg.RequestDelay = time.Hour
	f, transport := newTestFetcher(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, PageURL(cfg.BaseURL, 1))
	if got := errorTypeLabel(err); got != "canceled" {
		t.Fatalf("category = %q, want canceled (err=%v)", got, err)
	}
	if n := transport.GetTotalCallCount(); n != 0 {
		t.Fatalf("requests after cancel = %d, want 0", n)
	}
}

func TestPace(t *testing.T) {
	if err := pace(context.Background(), 0); err != nil {
		t.Fatalf("zero delay: %v", err)
	}
	if err := pace(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("short delay: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := pace(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled pace = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("canceled pace should return immediately")
	}
}

func TestAgentName(t *testing.T) {
	tests := map[string]string{
		"BookAnalyzer/1.0 (+https://example.test)": "BookAnalyzer",
		"Mozilla/5.0 (X11; Linux x86_64)":          "Mozilla",
		"plainbot":                                 "plainbot",
		"":                                         "*",
	}
	for in, want := range tests {
		if got := agentName(in); got != want {
			t.Errorf("agentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}
