package web

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/aggregator"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

const dateLayout = time.DateOnly

// DefaultStart is the first day the date filter shows.
var DefaultStart = time.Date(2021, 1, 1, 0, 0, 0, 0, record.JST)

// view is the date window and column selection of one page or chart request.
type view struct {
	Start    time.Time // 00:00:00 JST of the start day
	End      time.Time // last instant of the end day, JST
	StartRaw string
	EndRaw   string
	Columns  []string
	// Chosen is set once the user has submitted a selection, even an empty one.
	Chosen bool
}

// parseView reads start, end and col from q. Bad dates fall back to the
// defaults and are reported as problems.
func parseView(q url.Values, now time.Time) (view, []string) {
	var problems []string
	today := now.In(record.JST)

	v := view{StartRaw: DefaultStart.Format(dateLayout), EndRaw: today.Format(dateLayout)}
	if s := strings.TrimSpace(q.Get("start")); s != "" {
		if _, err := time.ParseInLocation(dateLayout, s, record.JST); err != nil {
			problems = append(problems, fmt.Sprintf("invalid start date %q", s))
		} else {
			v.StartRaw = s
		}
	}
	if s := strings.TrimSpace(q.Get("end")); s != "" {
		if _, err := time.ParseInLocation(dateLayout, s, record.JST); err != nil {
			problems = append(problems, fmt.Sprintf("invalid end date %q", s))
		} else {
			v.EndRaw = s
		}
	}
	v.Start, _ = time.ParseInLocation(dateLayout, v.StartRaw, record.JST)
	endDay, _ := time.ParseInLocation(dateLayout, v.EndRaw, record.JST)
	v.End = endDay.Add(24*time.Hour - time.Nanosecond)
	if v.End.Before(v.Start) {
		problems = append(problems, "end date is before start date")
	}

	if _, ok := q["cols"]; ok {
		v.Chosen = true
	}
	for _, c := range q["col"] {
		if c = strings.TrimSpace(c); c != "" && !slices.Contains(v.Columns, c) {
			v.Columns = append(v.Columns, c)
			v.Chosen = true
		}
	}
	return v, problems
}

// selection resolves the columns to plot: the user's choice when made,
// otherwise the defaults that the table actually has as numbers.
func (v view) selection(numeric []string) []string {
	if v.Chosen {
		return v.Columns
	}
	return aggregator.DefaultSelection(numeric)
}

// query encodes the view for links such as the chart frame.
func (v view) query(columns []string) string {
	q := url.Values{}
	q.Set("start", v.StartRaw)
	q.Set("end", v.EndRaw)
	q.Set("cols", "1")
	for _, c := range columns {
		q.Add("col", c)
	}
	return q.Encode()
}

// missingColumns lists the selected columns t does not have.
func missingColumns(t *table.Table, columns []string) []string {
	var out []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}
