package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

// ErrNoColumns is returned when nothing was selected to plot.
var ErrNoColumns = errors.New("no columns selected")

// Series is one plotted metric, aligned with Line.X.
type Series struct {
	Name   string
	Values []float64
}

// Line is a time-series chart ready to be drawn.
type Line struct {
	Title    string
	Subtitle string
	X        []string
	Series   []Series
}

// Renderer draws a line chart as a standalone HTML document.
type Renderer interface {
	Render(w io.Writer, l Line) error
}

// Plot draws the selected columns of t against posted_time_jst. With no
// columns the renderer is not called and ErrNoColumns is returned; a column
// t lacks fails with table.ErrMissingColumn before anything is drawn.
func Plot(w io.Writer, r Renderer, t *table.Table, title string, columns []string) error {
	if len(columns) == 0 {
		return ErrNoColumns
	}
	for _, c := range columns {
		if !t.HasColumn(c) {
			return fmt.Errorf("%w: %s", table.ErrMissingColumn, c)
		}
	}
	times, err := t.Times()
	if err != nil {
		return err
	}

	l := Line{Title: title, X: make([]string, len(times))}
	for i, ts := range times {
		l.X[i] = ts.In(record.JST).Format(record.TimeLayout)
	}
	if len(times) > 0 {
		l.Subtitle = fmt.Sprintf("%s .. %s (%d videos)", l.X[0], l.X[len(l.X)-1], len(times))
	}
	for _, c := range columns {
		values, err := t.Series(c)
		if err != nil {
			return err
		}
		l.Series = append(l.Series, Series{Name: c, Values: values})
	}
	return r.Render(w, l)
}

// ECharts renders through go-echarts.
type ECharts struct {
	Width  string
	Height string
}

func NewECharts() *ECharts {
	return &ECharts{Width: "100%", Height: "480px"}
}

func (e *ECharts) Render(w io.Writer, l Line) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: l.Title,
			Width:     e.Width,
			Height:    e.Height,
		}),
		charts.WithTitleOpts(opts.Title{Title: l.Title, Subtitle: l.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: table.TimeColumn}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value"}),
	)
	line.SetXAxis(l.X)
	for _, s := range l.Series {
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			// empty cells stay gaps in the line
			if !math.IsNaN(v) {
				data[i] = opts.LineData{Value: v}
			}
		}
		line.AddSeries(s.Name, data)
	}
	return line.Render(w)
}
