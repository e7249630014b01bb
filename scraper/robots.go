package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/temoto/robotstxt"

	"github.com/aluiziolira/book-analyzer/config"
	"github.com/aluiziolira/book-analyzer/logging"
)

const (
	robotsCacheSize = 16
	robotsPreview   = 500
	catalogPath     = "/catalogue/"
)

// Getter issues a single paced GET. *Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, url string, timeout, delay time.Duration) (*Page, error)
}

// RobotsAdvisor reads robots.txt once per host and reports whether a URL is
// allowed. Its answers are advisory: callers log them and carry on.
type RobotsAdvisor struct {
	getter  Getter
	timeout time.Duration
	agent   string
	logger  *slog.Logger
	cache   *lru.Cache[string, *robotstxt.RobotsData]
}

// NewRobotsAdvisor builds an advisor that fetches through getter.
func NewRobotsAdvisor(getter Getter, cfg *config.Config, logger *slog.Logger) (*RobotsAdvisor, error) {
	cache, err := lru.New[string, *robotstxt.RobotsData](robotsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create robots cache: %w", err)
	}
	return &RobotsAdvisor{
		getter:  getter,
		timeout: cfg.RobotsTimeout,
		agent:   agentName(cfg.UserAgent),
		logger:  logging.OrDiscard(logger),
		cache:   cache,
	}, nil
}

// Check fetches and logs {baseURL}/robots.txt. It returns nil when the file
// could not be read, which the advisor treats as allow-all.
func (a *RobotsAdvisor) Check(ctx context.Context, baseURL string) *robotstxt.RobotsData {
	host, root, err := hostRoot(baseURL)
	if err != nil {
		a.logger.Warn("robots.txt check skipped", slog.String("base_url", baseURL), slog.Any("error", err))
		return nil
	}
	if data, ok := a.cache.Get(host); ok {
		return data
	}

	data := a.load(ctx, root)
	a.cache.Add(host, data)
	return data
}

// Allowed reports whether robots.txt permits pageURL for this agent.
func (a *RobotsAdvisor) Allowed(ctx context.Context, pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return true
	}
	data := a.Check(ctx, pageURL)
	if data == nil {
		return true
	}
	return data.TestAgent(parsed.EscapedPath(), a.agent)
}

func (a *RobotsAdvisor) load(ctx context.Context, root string) *robotstxt.RobotsData {
	robotsURL := root + "/robots.txt"
	page, err := a.getter.Get(ctx, robotsURL, a.timeout, 0)
	if err != nil {
		var status ErrHTTPStatus
		if errors.As(err, &status) {
			// 4xx means no restrictions, 5xx means full restriction.
			data, parseErr := robotstxt.FromStatusAndBytes(status.Code, nil)
			if parseErr == nil {
				a.logger.Info("robots.txt unavailable",
					slog.String("url", robotsURL),
					slog.Int("status", status.Code),
					slog.Bool("catalog_allowed", data.TestAgent(catalogPath, a.agent)),
				)
				return data
			}
		}
		a.logger.Warn("could not verify robots.txt", slog.String("url", robotsURL), slog.Any("error", err))
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		a.logger.Warn("could not parse robots.txt", slog.String("url", robotsURL), slog.Any("error", err))
		return nil
	}

	a.logger.Info("robots.txt found",
		slog.String("url", robotsURL),
		slog.String("preview", preview(string(page.Body), robotsPreview)),
	)
	if data.TestAgent(catalogPath, a.agent) {
		a.logger.Info("robots.txt allows catalog access", slog.String("agent", a.agent))
	} else {
		a.logger.Warn("robots.txt may restrict catalog access", slog.String("agent", a.agent))
	}
	return data
}

func hostRoot(raw string) (string, string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("url %q has no host", raw)
	}
	return parsed.Host, parsed.Scheme + "://" + parsed.Host, nil
}

// agentName is the product token of a User-Agent string.
func agentName(userAgent string) string {
	token := userAgent
	if i := strings.IndexAny(token, "/ "); i > 0 {
		token = token[:i]
	}
	if token == "" {
		return "*"
	}
	return token
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
