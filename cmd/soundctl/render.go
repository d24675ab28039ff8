package main

import (
	"fmt"
	"slices"
	"strconv"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/aggregator"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/dataset"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

var identityColumns = []string{table.TimeColumn, "id", "author_uniqueId"}

var summaryHeader = prettytable.Row{"Metric", "Count", "Min", "Max", "Mean", "Latest"}

// newWriter returns a rounded table whose first left columns are left
// aligned and the rest, the numbers, right aligned. Headers keep their case
// so flattened column names print as they are spelled in exports.
func newWriter(columns, left int) prettytable.Writer {
	style := prettytable.StyleRounded
	style.Format.Header = text.FormatDefault
	tw := prettytable.NewWriter()
	tw.SetStyle(style)
	configs := make([]prettytable.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignRight
		if i < left {
			align = text.AlignLeft
		}
		configs = append(configs, prettytable.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// previewColumns picks the identity columns the table has, then the
// metrics. ids is the number of identity columns picked.
func previewColumns(t *table.Table, metrics []string) (cols []string, ids int) {
	for _, c := range identityColumns {
		if t.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	ids = len(cols)
	for _, c := range metrics {
		if t.HasColumn(c) && !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	return cols, ids
}

// renderPreview prints up to limit rows (all when limit is 0) of the
// identity columns and the selected metrics.
func renderPreview(t *table.Table, metrics []string, limit int) string {
	cols, ids := previewColumns(t, metrics)
	if len(cols) == 0 {
		return ""
	}
	tw := newWriter(len(cols), ids)

	header := make(prettytable.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	tw.AppendHeader(header)

	shown := 0
	for _, r := range t.Rows {
		if limit > 0 && shown >= limit {
			break
		}
		row := make(prettytable.Row, len(cols))
		for j, c := range cols {
			row[j] = dataset.FormatCell(r[c])
		}
		tw.AppendRow(row)
		shown++
	}
	if shown < t.Len() {
		tw.SetCaption("showing %d of %d rows", shown, t.Len())
	}
	return tw.Render()
}

func renderSummary(sum aggregator.Summary) string {
	tw := newWriter(len(summaryHeader), 1)
	tw.AppendHeader(summaryHeader)
	for _, m := range sum.Metrics {
		tw.AppendRow(prettytable.Row{
			m.Column,
			strconv.Itoa(m.Count),
			formatNumber(m.Min),
			formatNumber(m.Max),
			strconv.FormatFloat(m.Mean, 'f', 2, 64),
			formatNumber(m.Latest),
		})
	}
	return tw.Render()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func describeRange(sum aggregator.Summary) string {
	if sum.From.IsZero() {
		return fmt.Sprintf("%d rows", sum.Rows)
	}
	return fmt.Sprintf("%d rows, %s to %s JST", sum.Rows,
		sum.From.In(record.JST).Format(record.TimeLayout),
		sum.To.In(record.JST).Format(record.TimeLayout))
}
