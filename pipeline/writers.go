package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aluiziolira/book-analyzer/models"
)

// CSVHeader lists the tabular columns in order.
var CSVHeader = []string{
	"title",
	"price",
	"availability",
	"rating_label",
	"rating_value",
	"sequence_in_page",
	"page_index",
	"collected_at",
}

// Metadata describes the run in the JSON document.
type Metadata struct {
	CollectedAt  string `json:"collected_at"`
	TotalRecords int    `json:"total_records"`
	Project      string `json:"project"`
	BaseURL      string `json:"base_url,omitempty"`
	Pages        int    `json:"pages"`
}

// Document is the structured export.
type Document struct {
	Metadata  Metadata               `json:"metadata"`
	Aggregate models.AggregateResult `json:"aggregate"`
	Records   []models.Record        `json:"records"`
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, records []models.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Title,
			rec.Price.String(),
			rec.Availability.String(),
			rec.Rating.Label(),
			strconv.Itoa(rec.Rating.Value()),
			strconv.Itoa(rec.SequenceInPage),
			strconv.Itoa(rec.PageIndex),
			rec.CollectedAt.Format(time.RFC3339Nano),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	if doc.Records == nil {
		doc.Records = []models.Record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode json document: %w", err)
	}
	return nil
}

// WriteSummary renders the human-readable summary from the aggregate only.
func WriteSummary(w io.Writer, stamp string, agg models.AggregateResult) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "=== BOOK ANALYSIS SUMMARY ===\n\n")
	fmt.Fprintf(bw, "Collected at: %s\n", stamp)
	fmt.Fprintf(bw, "Total books analysed: %d\n", agg.TotalRecords)
	fmt.Fprintf(bw, "Average price: %s\n", agg.AveragePrice.String())
	fmt.Fprintf(bw, "Average rating: %.2f/5.0\n\n", agg.AverageRating)

	fmt.Fprintf(bw, "Rating distribution:\n")
	for _, lc := range agg.Distribution() {
		fmt.Fprintf(bw, "  %s: %d books\n", lc.Label, lc.Count)
	}

	fmt.Fprintf(bw, "\nBooks per page:\n")
	for _, pc := range agg.RecordsPerPage {
		fmt.Fprintf(bw, "  Page %d: %d books\n", pc.Page, pc.Count)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place, so path is either complete or untouched.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buffer := bufio.NewWriter(tmp)
	if err := write(buffer); err != nil {
		return err
	}
	if err := buffer.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// ReadCSVRows returns every row of a CSV artifact, header included.
func ReadCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// ReadDocument decodes a JSON artifact.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &doc, nil
}
