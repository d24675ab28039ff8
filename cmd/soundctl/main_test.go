package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/pipeline"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/tiktok"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MAX_FETCH_COUNT", "50")

	cmd := newRootCommandWith(&commandContext{opener: tiktok.NewMock()})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFetchThenShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.csv")

	out, err := runCommand(t, "fetch", "--count", "3", "--sound-id", "42", "--out", path)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "Fetched 3 videos for sound 42") {
		t.Fatalf("missing fetch line:\n%s", out)
	}
	if !strings.Contains(out, "stats_playCount") || !strings.Contains(out, "Wrote "+path) {
		t.Fatalf("unexpected fetch output:\n%s", out)
	}

	out, err = runCommand(t, "show", path, "--columns", "stats_playCount, stats_diggCount")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "3 rows") {
		t.Fatalf("missing row count:\n%s", out)
	}
	for _, want := range []string{"Metric", "stats_playCount", "stats_diggCount"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestShowDateWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.xlsx")
	if _, err := runCommand(t, "fetch", "--count", "5", "--out", path); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	out, err := runCommand(t, "show", path, "--start", "2030-01-01")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "0 rows") {
		t.Fatalf("future window should be empty:\n%s", out)
	}

	if _, err := runCommand(t, "show", path, "--start", "2024-02-01", "--end", "2024-01-01"); err == nil {
		t.Fatal("expected reversed window error")
	}
	if _, err := runCommand(t, "show", path, "--end", "tomorrow"); err == nil {
		t.Fatal("expected invalid date error")
	}
}

func TestFetchRejectsInvalidCount(t *testing.T) {
	_, err := runCommand(t, "fetch", "--count", "0")
	if !errors.Is(err, pipeline.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	_, err = runCommand(t, "fetch", "--count", "51")
	if !errors.Is(err, pipeline.ErrInvalidParams) {
		t.Fatalf("count above MAX_FETCH_COUNT should fail, got %v", err)
	}
}

func TestShowMissingFile(t *testing.T) {
	if _, err := runCommand(t, "show", filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDayWindow(t *testing.T) {
	from, to, err := dayWindow("2024-01-01", "2024-01-01")
	if err != nil {
		t.Fatalf("dayWindow: %v", err)
	}
	if got := to.Sub(from); got != 24*time.Hour-time.Nanosecond {
		t.Fatalf("window should cover one JST day, got %s", got)
	}

	// fractional seconds just before midnight still belong to the end day
	tbl := table.FromRecords([]record.Flat{
		{table.TimeColumn: "2024-01-01T23:59:59.5+09:00"},
		{table.TimeColumn: "2024-01-02 00:00:00"},
	})
	filtered, err := tbl.FilterByTime(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Len() != 1 {
		t.Fatalf("expected the 23:59:59.5 row only, got %d rows", filtered.Len())
	}
}

func TestSplitColumns(t *testing.T) {
	got := splitColumns(" a,,b ,posted_time_jst")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("splitColumns = %v", got)
	}
}

func TestRenderPreview(t *testing.T) {
	tbl := table.FromRecords([]record.Flat{
		{table.TimeColumn: "2024-01-01 09:00:00", "id": "1", "stats_playCount": int64(10), "desc": "hidden"},
		{table.TimeColumn: "2024-01-02 09:00:00", "id": "2", "stats_playCount": int64(20)},
		{table.TimeColumn: "2024-01-03 09:00:00", "id": "3", "stats_playCount": int64(30)},
	})

	out := renderPreview(tbl, []string{"stats_playCount", "missing"}, 2)
	for _, want := range []string{table.TimeColumn, "id", "stats_playCount", "20", "showing 2 of 3 rows"} {
		if !strings.Contains(out, want) {
			t.Fatalf("preview missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") || strings.Contains(out, "missing") || strings.Contains(out, "30") {
		t.Fatalf("preview shows unselected columns or rows past the limit:\n%s", out)
	}

	if out := renderPreview(tbl, nil, 0); strings.Contains(out, "showing") || !strings.Contains(out, "2024-01-03 09:00:00") {
		t.Fatalf("limit 0 should show every row:\n%s", out)
	}
	if renderPreview(&table.Table{}, nil, 0) != "" {
		t.Fatal("a table without known columns renders nothing")
	}
}

func TestPreviewColumns(t *testing.T) {
	tbl := table.FromRecords([]record.Flat{{table.TimeColumn: "2024-01-01 09:00:00", "id": "1", "stats_diggCount": int64(1)}})
	cols, ids := previewColumns(tbl, []string{"stats_diggCount", "id"})
	if ids != 2 || len(cols) != 3 || cols[2] != "stats_diggCount" {
		t.Fatalf("previewColumns = %v, %d", cols, ids)
	}
}
