package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/book-analyzer/config"
	"github.com/aluiziolira/book-analyzer/logging"
	"github.com/aluiziolira/book-analyzer/models"
	"github.com/aluiziolira/book-analyzer/parser"
)

// PageFetcher retrieves one catalog page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// PageExtractor turns page markup into records.
type PageExtractor interface {
	Extract(markup []byte) parser.ExtractResult
}

// Advisor answers advisory robots.txt questions.
type Advisor interface {
	Allowed(ctx context.Context, url string) bool
}

// Walker drives the fetcher and extractor across pages 1..N in order.
type Walker struct {
	fetcher   PageFetcher
	extractor PageExtractor
	advisor   Advisor
	pageDelay time.Duration
	logger    *slog.Logger
	metrics   *Metrics

	sleep func(context.Context, time.Duration) error
}

// WalkerOption customises a Walker.
type WalkerOption func(*Walker)

// WithAdvisor consults a robots.txt advisor before each page.
func WithAdvisor(a Advisor) WalkerOption {
	return func(w *Walker) {
		w.advisor = a
	}
}

// WithMetrics records page outcomes on m.
func WithMetrics(m *Metrics) WalkerOption {
	return func(w *Walker) {
		w.metrics = m
	}
}

// NewWalker builds a walker that waits cfg.PageDelay after every page.
func NewWalker(cfg *config.Config, fetcher PageFetcher, extractor PageExtractor, logger *slog.Logger, opts ...WalkerOption) *Walker {
	w := &Walker{
		fetcher:   fetcher,
		extractor: extractor,
		pageDelay: cfg.PageDelay,
		logger:    logging.OrDiscard(logger),
		sleep:     pace,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PageURL builds the catalog URL for page n.
func PageURL(baseURL string, n int) string {
	return fmt.Sprintf("%s/catalogue/page-%d.html", strings.TrimRight(baseURL, "/"), n)
}

// Walk visits pages 1..pageCount exactly once each. A failed page contributes
// no records and the walk moves on. The only error is the context's, in which
// case nothing collected so far is returned.
func (w *Walker) Walk(ctx context.Context, baseURL string, pageCount int) (*models.WalkResult, error) {
	result := &models.WalkResult{StartTime: time.Now()}
	w.logger.Info("starting walk", slog.String("base_url", baseURL), slog.Int("pages", pageCount))

	for n := 1; n <= pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := PageURL(baseURL, n)
		w.logger.Info("processing page", slog.Int("page", n), slog.Int("of", pageCount), slog.String("url", pageURL))
		if w.advisor != nil && !w.advisor.Allowed(ctx, pageURL) {
			w.logger.Warn("robots.txt disallows page, fetching anyway", slog.String("url", pageURL))
		}

		page, records := w.walkPage(ctx, n, pageURL)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, page)
		result.Records = append(result.Records, records...)
		w.metrics.ObservePage(page)

		if err := w.sleep(ctx, w.pageDelay); err != nil {
			return nil, err
		}
	}

	result.EndTime = time.Now()
	w.logger.Info("walk finished",
		slog.Int("records", len(result.Records)),
		slog.Int("failed_pages", len(result.FailedPages())),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}

func (w *Walker) walkPage(ctx context.Context, n int, pageURL string) (models.PageResult, []models.Record) {
	pr := models.PageResult{Index: n, URL: pageURL}

	page, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		pr.Outcome = models.OutcomeFailed
		pr.Err = err
		w.logger.Warn("page contributed no records", slog.Int("page", n), slog.Any("error", err))
		return pr, nil
	}

	extracted := w.extractor.Extract(page.Body)
	records := make([]models.Record, 0, len(extracted.Records))
	for _, rec := range extracted.Records {
		rec.PageIndex = n
		records = append(records, rec)
	}

	pr.Records = len(records)
	pr.Dropped = extracted.Dropped
	pr.Outcome = models.OutcomeSuccess
	if extracted.Degraded() {
		pr.Outcome = models.OutcomeDegraded
	}
	if extracted.Containers == 0 {
		w.logger.Warn("no catalog entries on page", slog.Int("page", n))
	}
	return pr, records
}
