package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/book-analyzer/models"
)

func printReport(out io.Writer, walked *models.WalkResult, agg models.AggregateResult, exported models.ExportResult) {
	summary := table.NewWriter()
	summary.SetOutputMirror(out)
	summary.SetTitle("Book analysis report")
	summary.AppendRows([]table.Row{
		{"Total books", agg.TotalRecords},
		{"Average price", agg.AveragePrice.String()},
		{"Average rating", fmt.Sprintf("%.2f/5.0", agg.AverageRating)},
		{"Failed pages", len(walked.FailedPages())},
		{"Duration", walked.EndTime.Sub(walked.StartTime).Round(time.Millisecond)},
	})
	summary.SetStyle(table.StyleRounded)
	summary.Render()

	ratings := table.NewWriter()
	ratings.SetOutputMirror(out)
	ratings.AppendHeader(table.Row{"Rating", "Books"})
	for _, lc := range agg.Distribution() {
		ratings.AppendRow(table.Row{lc.Label, lc.Count})
	}
	ratings.SetStyle(table.StyleRounded)
	ratings.Render()

	pages := table.NewWriter()
	pages.SetOutputMirror(out)
	pages.AppendHeader(table.Row{"Page", "Outcome", "Books", "Dropped"})
	for _, p := range walked.Pages {
		pages.AppendRow(table.Row{p.Index, p.Outcome, p.Records, p.Dropped})
	}
	pages.SetStyle(table.StyleRounded)
	pages.Render()

	artifacts := table.NewWriter()
	artifacts.SetOutputMirror(out)
	artifacts.AppendHeader(table.Row{"Artifact", "Path", "Status"})
	for _, a := range exported.Artifacts {
		status := "written"
		if a.Err != nil {
			status = "failed: " + a.Err.Error()
		}
		artifacts.AppendRow(table.Row{a.Kind, a.Path, status})
	}
	artifacts.SetStyle(table.StyleRounded)
	artifacts.Render()
}
