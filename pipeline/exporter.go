package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aluiziolira/book-analyzer/logging"
	"github.com/aluiziolira/book-analyzer/models"
)

// StampLayout formats the run timestamp embedded in artifact names.
const StampLayout = "20060102_150405"

// ProjectName is recorded in the JSON metadata.
const ProjectName = "Book Analyzer - polite web scraping"

// RunInfo identifies the run being exported.
type RunInfo struct {
	RunAt   time.Time
	BaseURL string
	Pages   int
}

// Stamp returns the run timestamp as YYYYMMDD_HHMMSS.
func (r RunInfo) Stamp() string {
	return r.RunAt.Format(StampLayout)
}

// Exporter writes the CSV, JSON and summary artifacts into one directory.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter builds an exporter rooted at dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logging.OrDiscard(logger)}
}

// Paths returns the artifact paths for a run stamp.
func (e *Exporter) Paths(stamp string) map[models.ArtifactKind]string {
	return map[models.ArtifactKind]string{
		models.ArtifactCSV:     filepath.Join(e.dir, fmt.Sprintf("books_%s.csv", stamp)),
		models.ArtifactJSON:    filepath.Join(e.dir, fmt.Sprintf("books_%s.json", stamp)),
		models.ArtifactSummary: filepath.Join(e.dir, fmt.Sprintf("summary_%s.txt", stamp)),
	}
}

// Export writes all three artifacts. A failing artifact is logged and
// recorded on its entry; the others are still attempted.
func (e *Exporter) Export(records []models.Record, agg models.AggregateResult, run RunInfo) models.ExportResult {
	stamp := run.Stamp()
	paths := e.Paths(stamp)
	doc := Document{
		Metadata: Metadata{
			CollectedAt:  stamp,
			TotalRecords: len(records),
			Project:      ProjectName,
			BaseURL:      run.BaseURL,
			Pages:        run.Pages,
		},
		Aggregate: agg,
		Records:   records,
	}

	steps := []struct {
		kind  models.ArtifactKind
		write func(io.Writer) error
	}{
		{models.ArtifactCSV, func(w io.Writer) error { return WriteCSV(w, records) }},
		{models.ArtifactJSON, func(w io.Writer) error { return WriteJSON(w, doc) }},
		{models.ArtifactSummary, func(w io.Writer) error { return WriteSummary(w, stamp, agg) }},
	}

	result := models.ExportResult{RunStamp: stamp}
	for _, step := range steps {
		path := paths[step.kind]
		err := writeFileAtomic(path, step.write)
		if err != nil {
			e.logger.Error("export failed",
				slog.String("kind", string(step.kind)),
				slog.String("path", path),
				slog.Any("error", err),
			)
		} else {
			e.logger.Info("exported", slog.String("kind", string(step.kind)), slog.String("path", path))
		}
		result.Artifacts = append(result.Artifacts, models.Artifact{Kind: step.kind, Path: path, Err: err})
	}
	return result
}

// Verify re-reads the written CSV and JSON artifacts and checks that both
// hold want records.
func Verify(result models.ExportResult, want int) error {
	var errs []error
	for _, a := range result.Artifacts {
		if a.Err != nil {
			continue
		}
		switch a.Kind {
		case models.ArtifactCSV:
			rows, err := ReadCSVRows(a.Path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if len(rows) != want+1 {
				errs = append(errs, fmt.Errorf("csv %s: %d data rows, want %d", a.Path, len(rows)-1, want))
			}
		case models.ArtifactJSON:
			doc, err := ReadDocument(a.Path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if len(doc.Records) != want || doc.Metadata.TotalRecords != want {
				errs = append(errs, fmt.Errorf("json %s: %d records (metadata %d), want %d", a.Path, len(doc.Records), doc.Metadata.TotalRecords, want))
			}
		}
	}
	return errors.Join(errs...)
}

// Err joins the errors of every failed artifact.
func Err(result models.ExportResult) error {
	var errs []error
	for _, a := range result.Artifacts {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Kind, a.Err))
		}
	}
	return errors.Join(errs...)
}
