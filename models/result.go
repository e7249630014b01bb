package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// PageCount is the number of records collected from one page.
type PageCount struct {
	Page  int
	Count int
}

// PageCounts is ordered by ascending page index.
type PageCounts []PageCount

// Sorted returns a copy ordered by page index.
func (pc PageCounts) Sorted() PageCounts {
	out := make(PageCounts, len(pc))
	copy(out, pc)
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// Get returns the count for page, 0 when absent.
func (pc PageCounts) Get(page int) int {
	for _, c := range pc {
		if c.Page == page {
			return c.Count
		}
	}
	return 0
}

// MarshalJSON writes an object whose keys keep the slice order.
func (pc PageCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range pc {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(c.Page)))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form back, ordered by page index.
func (pc *PageCounts) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(PageCounts, 0, len(raw))
	for k, v := range raw {
		page, err := strconv.Atoi(k)
		if err != nil {
			return err
		}
		out = append(out, PageCount{Page: page, Count: v})
	}
	*pc = out.Sorted()
	return nil
}

// LabelCount pairs a rating label with its count.
type LabelCount struct {
	Label string
	Count int
}

// AggregateResult holds summary statistics over a finished record set.
type AggregateResult struct {
	TotalRecords       int            `json:"total_records"`
	AveragePrice       Text           `json:"average_price"`
	AverageRating      float64        `json:"average_rating"`
	RatingDistribution map[string]int `json:"rating_distribution"`
	RecordsPerPage     PageCounts     `json:"records_per_page"`
	PricedRecords      int            `json:"priced_records"`
	PriceParseFailures int            `json:"price_parse_failures"`
}

// Distribution returns the rating counts, most frequent first, ties by label.
func (a AggregateResult) Distribution() []LabelCount {
	out := make([]LabelCount, 0, len(a.RatingDistribution))
	for label, count := range a.RatingDistribution {
		out = append(out, LabelCount{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Outcome classifies how a single page fared.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// PageResult describes one walked page.
type PageResult struct {
	Index   int
	URL     string
	Outcome Outcome
	Records int
	Dropped int
	Err     error
}

// WalkResult holds everything a walk produced.
type WalkResult struct {
	Records   []Record
	Pages     []PageResult
	StartTime time.Time
	EndTime   time.Time
}

// FailedPages returns the pages whose fetch failed.
func (w *WalkResult) FailedPages() []PageResult {
	var out []PageResult
	for _, p := range w.Pages {
		if p.Outcome == OutcomeFailed {
			out = append(out, p)
		}
	}
	return out
}

// ArtifactKind names an export artifact.
type ArtifactKind string

const (
	ArtifactCSV     ArtifactKind = "csv"
	ArtifactJSON    ArtifactKind = "json"
	ArtifactSummary ArtifactKind = "summary"
)

// Artifact is one export output.
type Artifact struct {
	Kind ArtifactKind
	Path string
	Err  error
}

// ExportResult lists the artifacts of one export.
type ExportResult struct {
	RunStamp  string
	Artifacts []Artifact
}

// Written returns the paths of the artifacts that were written.
func (e ExportResult) Written() []string {
	var out []string
	for _, a := range e.Artifacts {
		if a.Err == nil {
			out = append(out, a.Path)
		}
	}
	return out
}
