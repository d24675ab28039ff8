package aggregator

import (
	"errors"
	"testing"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

func TestAggregate(t *testing.T) {
	tbl := &table.Table{
		Columns: []string{table.TimeColumn, "stats_playCount", "stats_diggCount"},
		Rows: []table.Row{
			{table.TimeColumn: "2023-01-03 00:00:00", "stats_playCount": int64(30), "stats_diggCount": nil},
			{table.TimeColumn: "2023-01-01 00:00:00", "stats_playCount": int64(10), "stats_diggCount": 2.5},
			{table.TimeColumn: "2023-01-02 00:00:00", "stats_playCount": int64(20), "stats_diggCount": 1.5},
		},
	}
	sum, err := Aggregate(tbl, []string{"stats_playCount", "stats_diggCount"})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Rows != 3 || len(sum.Metrics) != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.From.Day() != 1 || sum.To.Day() != 3 {
		t.Fatalf("range: %v .. %v", sum.From, sum.To)
	}

	plays := sum.Metrics[0]
	if plays.Count != 3 || plays.Min != 10 || plays.Max != 30 || plays.Mean != 20 || plays.Latest != 30 {
		t.Fatalf("plays: %+v", plays)
	}
	diggs := sum.Metrics[1]
	if diggs.Count != 2 || diggs.Min != 1.5 || diggs.Max != 2.5 || diggs.Latest != 1.5 {
		t.Fatalf("diggs: %+v", diggs)
	}
}

func TestAggregate_EmptyTable(t *testing.T) {
	tbl := &table.Table{Columns: []string{table.TimeColumn, "stats_playCount"}, Rows: []table.Row{}}
	sum, err := Aggregate(tbl, []string{"stats_playCount"})
	if err != nil {
		t.Fatal(err)
	}
	if m := sum.Metrics[0]; m.Count != 0 || m.Min != 0 || m.Max != 0 {
		t.Fatalf("expected zero metric, got %+v", m)
	}
	if !sum.From.IsZero() {
		t.Fatalf("expected zero range, got %v", sum.From)
	}
}

func TestAggregate_MissingColumn(t *testing.T) {
	tbl := &table.Table{Columns: []string{table.TimeColumn}}
	if _, err := Aggregate(tbl, []string{"nope"}); !errors.Is(err, table.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}
