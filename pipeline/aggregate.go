// Package pipeline aggregates a finished record set and exports it.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/aluiziolira/book-analyzer/logging"
	"github.com/aluiziolira/book-analyzer/models"
	"github.com/aluiziolira/book-analyzer/parser"
)

// CurrencySymbol prefixes catalog prices and the formatted average.
const CurrencySymbol = "£"

// Aggregator computes summary statistics over records.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator builds an aggregator that logs to logger.
func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logging.OrDiscard(logger)}
}

// Aggregate summarises records. Absent and unparseable prices are left out
// of the price mean; every record counts towards the rating mean, with
// unknown ratings as 0.
func (a *Aggregator) Aggregate(records []models.Record) models.AggregateResult {
	result := models.AggregateResult{
		TotalRecords:       len(records),
		AveragePrice:       models.Missing(models.AbsentNode),
		RatingDistribution: make(map[string]int),
		RecordsPerPage:     models.PageCounts{},
	}
	if len(records) == 0 {
		a.logger.Warn("no records to aggregate")
		return result
	}

	var (
		priceSum  float64
		ratingSum int
		perPage   = make(map[int]int)
	)
	for _, rec := range records {
		if value, ok := a.price(rec); ok {
			priceSum += value
			result.PricedRecords++
		} else if rec.Price.Ok() {
			result.PriceParseFailures++
		}

		ratingSum += rec.Rating.Value()
		result.RatingDistribution[rec.Rating.Label()]++
		perPage[rec.PageIndex]++
	}

	if result.PricedRecords > 0 {
		result.AveragePrice = models.Known(FormatPrice(priceSum / float64(result.PricedRecords)))
	}
	result.AverageRating = float64(ratingSum) / float64(len(records))

	for page, count := range perPage {
		result.RecordsPerPage = append(result.RecordsPerPage, models.PageCount{Page: page, Count: count})
	}
	result.RecordsPerPage = result.RecordsPerPage.Sorted()

	a.logger.Info("aggregation complete",
		slog.Int("records", result.TotalRecords),
		slog.Int("priced", result.PricedRecords),
		slog.Int("price_parse_failures", result.PriceParseFailures),
		slog.String("average_price", result.AveragePrice.String()),
		slog.Float64("average_rating", result.AverageRating),
	)
	return result
}

func (a *Aggregator) price(rec models.Record) (float64, bool) {
	if !rec.Price.Ok() {
		return 0, false
	}
	value, err := ParsePrice(rec.Price.Value)
	if err != nil {
		a.logger.Warn("price excluded from mean",
			slog.String("title", rec.Title),
			slog.String("price", rec.Price.Value),
			slog.Any("error", err),
		)
		return 0, false
	}
	return value, true
}

// ParsePrice reads a currency-prefixed decimal such as "£51.77".
func ParsePrice(raw string) (float64, error) {
	cleaned := parser.NormalizePrice(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price %q", raw)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("price %q is not finite", raw)
	}
	return value, nil
}

// FormatPrice renders value with the currency symbol and two decimals.
func FormatPrice(value float64) string {
	return fmt.Sprintf("%s%.2f", CurrencySymbol, value)
}
