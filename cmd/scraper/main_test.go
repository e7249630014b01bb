package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/book-analyzer/models"
)

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SCRAPER_PAGES", "5")
	t.Setenv("SCRAPER_OUTPUT_DIR", "from-env")

	cfg, err := loadConfig([]string{"-pages", "2", "-page-delay", "10ms"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Pages != 2 {
		t.Fatalf("pages = %d, want flag value 2", cfg.Pages)
	}
	if cfg.OutputDir != "from-env" {
		t.Fatalf("output dir = %q, want env value", cfg.OutputDir)
	}
	if cfg.PageDelay != 10*time.Millisecond {
		t.Fatalf("page delay = %v", cfg.PageDelay)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	if _, err := loadConfig([]string{"-pages", "-1"}); err == nil {
		t.Fatalf("negative pages should be rejected")
	}
	t.Setenv("SCRAPER_PAGES", "many")
	if _, err := loadConfig(nil); err == nil {
		t.Fatalf("invalid env should be rejected")
	}
}

func TestPrintReport(t *testing.T) {
	walked := &models.WalkResult{
		Pages: []models.PageResult{
			{Index: 1, Outcome: models.OutcomeSuccess, Records: 20},
			{Index: 2, Outcome: models.OutcomeFailed, Err: errors.New("boom")},
		},
	}
	agg := models.AggregateResult{
		TotalRecords:       20,
		AveragePrice:       models.Known("£35.07"),
		AverageRating:      2.85,
		RatingDistribution: map[string]int{"Three": 20},
		RecordsPerPage:     models.PageCounts{{Page: 1, Count: 20}},
	}
	exported := models.ExportResult{
		RunStamp:  "20250924_130913",
		Artifacts: []models.Artifact{{Kind: models.ArtifactCSV, Path: "results/books_20250924_130913.csv"}},
	}

	var buf bytes.Buffer
	printReport(&buf, walked, agg, exported)

	out := buf.String()
	for _, want := range []string{"£35.07", "2.85/5.0", "Three", "failed", "books_20250924_130913.csv"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
