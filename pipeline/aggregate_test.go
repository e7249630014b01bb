package pipeline

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/book-analyzer/models"
)

func record(page, seq int, price models.Text, rating models.Rating) models.Record {
	return models.Record{
		Title:          "Book",
		Price:          price,
		Availability:   models.Known("In stock"),
		Rating:         rating,
		SequenceInPage: seq,
		PageIndex:      page,
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := NewAggregator(nil).Aggregate(nil)

	want := models.AggregateResult{
		TotalRecords:       0,
		AveragePrice:       models.Missing(models.AbsentNode),
		AverageRating:      0,
		RatingDistribution: map[string]int{},
		RecordsPerPage:     models.PageCounts{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("empty aggregate mismatch (-want +got):\n%s", diff)
	}
	if got.AveragePrice.String() != models.NotAvailable {
		t.Fatalf("average price = %q", got.AveragePrice.String())
	}
}

func TestAggregateExcludesMissingPrices(t *testing.T) {
	records := []models.Record{
		record(1, 1, models.Known("£10.00"), models.RatingOne),
		record(1, 2, models.Known("£20.00"), models.RatingFive),
		record(2, 1, models.Missing(models.AbsentNode), models.RatingUnknown),
	}

	got := NewAggregator(nil).Aggregate(records)

	if got.TotalRecords != 3 {
		t.Fatalf("total = %d, want 3", got.TotalRecords)
	}
	if got.AveragePrice.String() != "£15.00" {
		t.Fatalf("average price = %q, want £15.00", got.AveragePrice.String())
	}
	// Unknown counts as 0 in the rating mean: (1 + 5 + 0) / 3.
	if got.AverageRating != 2 {
		t.Fatalf("average rating = %v, want 2", got.AverageRating)
	}
	if got.PricedRecords != 2 || got.PriceParseFailures != 0 {
		t.Fatalf("priced=%d failures=%d", got.PricedRecords, got.PriceParseFailures)
	}
	wantDist := map[string]int{"One": 1, "Five": 1, "unknown": 1}
	if diff := cmp.Diff(wantDist, got.RatingDistribution); diff != "" {
		t.Fatalf("distribution mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateUnparseablePrices(t *testing.T) {
	records := []models.Record{
		record(1, 1, models.Known("free"), models.RatingTwo),
		record(1, 2, models.Known("£"), models.RatingTwo),
		record(1, 3, models.Missing(models.AbsentEmpty), models.RatingTwo),
	}

	got := NewAggregator(nil).Aggregate(records)

	if got.AveragePrice.Ok() {
		t.Fatalf("average price should be absent, got %q", got.AveragePrice.String())
	}
	if got.TotalRecords != 3 || got.PriceParseFailures != 2 {
		t.Fatalf("total=%d failures=%d", got.TotalRecords, got.PriceParseFailures)
	}
	if got.AverageRating != 2 {
		t.Fatalf("average rating = %v, want 2", got.AverageRating)
	}
}

func TestAggregateRecordsPerPageSorted(t *testing.T) {
	var records []models.Record
	for _, page := range []int{11, 2, 2, 1, 11, 11} {
		records = append(records, record(page, 1, models.Known("£1.00"), models.RatingThree))
	}

	got := NewAggregator(nil).Aggregate(records)

	want := models.PageCounts{{Page: 1, Count: 1}, {Page: 2, Count: 2}, {Page: 11, Count: 3}}
	if diff := cmp.Diff(want, got.RecordsPerPage); diff != "" {
		t.Fatalf("records per page mismatch (-want +got):\n%s", diff)
	}
	if got.RatingDistribution["Three"] != 6 || len(got.RatingDistribution) != 1 {
		t.Fatalf("distribution = %v", got.RatingDistribution)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "£51.77", want: 51.77},
		{input: "Â£51.77", want: 51.77},
		{input: " £ 3.5 ", want: 3.5},
		{input: "12", want: 12},
		{input: "", wantErr: true},
		{input: "£", wantErr: true},
		{input: "£abc", wantErr: true},
		{input: "£NaN", wantErr: true},
		{input: "£Inf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePrice(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(15); got != "£15.00" {
		t.Fatalf("FormatPrice(15) = %q", got)
	}
	if got := FormatPrice(35.3333); got != "£35.33" {
		t.Fatalf("FormatPrice(35.3333) = %q", got)
	}
}
