package aggregator

import (
	"math"
	"slices"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

// DefaultColumns are the metrics shown when the user has not chosen any.
var DefaultColumns = []string{
	"authorStats_followingCount",
	"stats_shareCount",
	"stats_collectCount",
	"stats_commentCount",
	"stats_diggCount",
	"stats_playCount",
}

// DefaultSelection keeps the default metrics that are among numeric.
func DefaultSelection(numeric []string) []string {
	var out []string
	for _, c := range DefaultColumns {
		if slices.Contains(numeric, c) {
			out = append(out, c)
		}
	}
	return out
}

type MetricSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Latest float64 `json:"latest"`
}

type Summary struct {
	Rows    int             `json:"rows"`
	From    time.Time       `json:"from,omitzero"`
	To      time.Time       `json:"to,omitzero"`
	Metrics []MetricSummary `json:"metrics"`
}

// Aggregate summarizes the given columns of t. Empty cells are skipped;
// Latest is the value of the most recently posted row that has one.
func Aggregate(t *table.Table, columns []string) (Summary, error) {
	sum := Summary{Rows: t.Len(), Metrics: make([]MetricSummary, 0, len(columns))}

	// rows without a usable time fall back to table order
	times := make([]time.Time, t.Len())
	for i, r := range t.Rows {
		ts, err := table.RowTime(r)
		if err != nil {
			continue
		}
		times[i] = ts
		if sum.From.IsZero() || ts.Before(sum.From) {
			sum.From = ts
		}
		if ts.After(sum.To) {
			sum.To = ts
		}
	}

	for _, c := range columns {
		series, err := t.Series(c)
		if err != nil {
			return Summary{}, err
		}
		m := MetricSummary{Column: c, Min: math.Inf(1), Max: math.Inf(-1)}
		var total float64
		latestAt := -1
		for i, v := range series {
			if math.IsNaN(v) {
				continue
			}
			m.Count++
			total += v
			m.Min = math.Min(m.Min, v)
			m.Max = math.Max(m.Max, v)
			if latestAt < 0 || !times[i].Before(times[latestAt]) {
				latestAt = i
			}
		}
		if m.Count == 0 {
			m.Min, m.Max = 0, 0
		} else {
			m.Mean = total / float64(m.Count)
			m.Latest = series[latestAt]
		}
		sum.Metrics = append(sum.Metrics, m)
	}
	return sum, nil
}
