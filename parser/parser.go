// Package parser turns catalog page markup into records.
package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/book-analyzer/logging"
	"github.com/aluiziolira/book-analyzer/models"
)

const (
	containerSelector    = "article.product_pod"
	titleSelector        = "h3 a"
	priceSelector        = "p.price_color"
	availabilitySelector = "p.instock.availability"
	availabilityFallback = "p.availability"
	ratingSelector       = "p.star-rating"
	ratingMarker         = "star-rating"
)

// ExtractResult is what one page's markup produced.
type ExtractResult struct {
	Records    []models.Record
	Containers int
	Dropped    int
	// Substituted counts fields replaced by their absent form.
	Substituted int
}

// Degraded reports whether any candidate was dropped or any field missing.
func (r ExtractResult) Degraded() bool {
	return r.Dropped > 0 || r.Substituted > 0
}

// Extractor parses catalog pages.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithClock overrides the time source used for CollectedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor builds an extractor that logs to logger.
func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		logger: logging.OrDiscard(logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the records found in markup in document order, numbered
// from 1 after dropped candidates are removed. Unparseable markup yields an
// empty result.
func (e *Extractor) Extract(markup []byte) ExtractResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		e.logger.Error("parse page markup", slog.Any("error", err))
		return ExtractResult{}
	}

	var result ExtractResult
	doc.Find(containerSelector).Each(func(i int, s *goquery.Selection) {
		result.Containers++
		rec, missing, err := e.extractOne(s)
		if err != nil {
			result.Dropped++
			e.logger.Warn("dropping catalog entry",
				slog.Int("position", i+1),
				slog.Any("error", err),
			)
			return
		}
		result.Substituted += missing
		rec.SequenceInPage = len(result.Records) + 1
		result.Records = append(result.Records, rec)
		e.logger.Debug("entry extracted",
			slog.Int("sequence", rec.SequenceInPage),
			slog.String("title", truncate(rec.Title, 30)),
		)
	})

	e.logger.Info("page extracted",
		slog.Int("containers", result.Containers),
		slog.Int("records", len(result.Records)),
		slog.Int("dropped", result.Dropped),
	)
	return result
}

func (e *Extractor) extractOne(s *goquery.Selection) (models.Record, int, error) {
	title, ok := s.Find(titleSelector).First().Attr("title")
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return models.Record{}, 0, fmt.Errorf("entry missing title")
	}

	missing := 0
	price := textField(s, priceSelector)
	if !price.Ok() {
		missing++
	}
	availability := textField(s, availabilitySelector, availabilityFallback)
	if !availability.Ok() {
		missing++
	}
	rating := ratingField(s)
	if rating == models.RatingUnknown {
		missing++
	}

	return models.Record{
		Title:        title,
		Price:        price,
		Availability: availability,
		Rating:       rating,
		CollectedAt:  e.now(),
	}, missing, nil
}

// textField returns the normalised text of the first selector that matches.
func textField(s *goquery.Selection, selectors ...string) models.Text {
	reason := models.AbsentNode
	for _, sel := range selectors {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := NormalizeText(node.Text())
		if text == "" {
			reason = models.AbsentEmpty
			continue
		}
		return models.Known(text)
	}
	return models.Missing(reason)
}

func ratingField(s *goquery.Selection) models.Rating {
	class, ok := s.Find(ratingSelector).First().Attr("class")
	if !ok {
		return models.RatingUnknown
	}
	return models.ParseRating(RatingToken(class))
}

// RatingToken returns the first class token that is not the generic
// star-rating marker.
func RatingToken(class string) string {
	for _, token := range strings.Fields(class) {
		if token != ratingMarker {
			return token
		}
	}
	return ""
}

// NormalizePrice removes the currency symbol and surrounding whitespace.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = strings.ReplaceAll(price, "Â", "")
	price = strings.ReplaceAll(price, "£", "")
	return strings.TrimSpace(price)
}

// NormalizeText collapses internal whitespace and trims the ends.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
