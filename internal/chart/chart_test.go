package chart

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

type recordingRenderer struct {
	calls []Line
}

func (r *recordingRenderer) Render(w io.Writer, l Line) error {
	r.calls = append(r.calls, l)
	return nil
}

func sample() *table.Table {
	return &table.Table{
		Columns: []string{table.TimeColumn, "stats_playCount", "stats_diggCount", "desc"},
		Rows: []table.Row{
			{table.TimeColumn: "2023-11-15 07:13:20", "stats_playCount": int64(10), "stats_diggCount": int64(1), "desc": "a"},
			{table.TimeColumn: "2023-11-16 07:13:20", "stats_playCount": int64(20), "desc": "b"},
		},
	}
}

func TestPlot_NoColumnsSkipsRenderer(t *testing.T) {
	r := &recordingRenderer{}
	err := Plot(io.Discard, r, sample(), "t", nil)
	if !errors.Is(err, ErrNoColumns) {
		t.Fatalf("expected ErrNoColumns, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("renderer called %d times", len(r.calls))
	}
}

func TestPlot_RendersOnceWithSelectedColumns(t *testing.T) {
	r := &recordingRenderer{}
	cols := []string{"stats_playCount", "stats_diggCount"}
	if err := Plot(io.Discard, r, sample(), "t", cols); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 1 {
		t.Fatalf("expected exactly one render call, got %d", len(r.calls))
	}
	l := r.calls[0]
	if len(l.Series) != 2 || l.Series[0].Name != "stats_playCount" || l.Series[1].Name != "stats_diggCount" {
		t.Fatalf("unexpected series: %+v", l.Series)
	}
	if l.X[1] != "2023-11-16 07:13:20" {
		t.Fatalf("x axis: %v", l.X)
	}
	if !math.IsNaN(l.Series[1].Values[1]) {
		t.Fatalf("empty cell should be NaN, got %v", l.Series[1].Values[1])
	}
}

func TestPlot_MissingColumn(t *testing.T) {
	r := &recordingRenderer{}
	err := Plot(io.Discard, r, sample(), "t", []string{"stats_playCount", "stats_shareCount"})
	if !errors.Is(err, table.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatal("renderer should not be called")
	}
}

func TestECharts_Render(t *testing.T) {
	var buf bytes.Buffer
	if err := Plot(&buf, NewECharts(), sample(), "Sound 123", []string{"stats_playCount", "stats_diggCount"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<html", "Sound 123", "stats_playCount", "2023-11-15 07:13:20"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered chart missing %q", want)
		}
	}
}
