package table

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
)

// FilterByTime returns the rows whose posted_time_jst lies in [start, end].
// An empty intersection is a zero-row table, not an error.
func (t *Table) FilterByTime(start, end time.Time) (*Table, error) {
	if !t.HasColumn(TimeColumn) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TimeColumn)
	}
	out := &Table{Columns: append([]string(nil), t.Columns...), Rows: []Row{}}
	for i, r := range t.Rows {
		ts, err := RowTime(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// NumericColumns lists the columns whose non-empty cells are all numbers.
// The time column is never numeric.
func (t *Table) NumericColumns() []string {
	if t == nil {
		return nil
	}
	var cols []string
	for _, c := range t.Columns {
		if c == TimeColumn {
			continue
		}
		seen := false
		numeric := true
		for _, r := range t.Rows {
			v, ok := r[c]
			if !ok || v == nil {
				continue
			}
			if _, ok := ToFloat(v); !ok {
				numeric = false
				break
			}
			seen = true
		}
		if seen && numeric {
			cols = append(cols, c)
		}
	}
	return cols
}

// Series returns the column as floats aligned with the rows. Empty cells are NaN.
func (t *Table) Series(column string) ([]float64, error) {
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		v, ok := r[column]
		if !ok || v == nil {
			out[i] = math.NaN()
			continue
		}
		f, ok := ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s row %d is %T", record.ErrTypeConversion, column, i, v)
		}
		out[i] = f
	}
	return out, nil
}

// Times returns posted_time_jst for every row.
func (t *Table) Times() ([]time.Time, error) {
	if !t.HasColumn(TimeColumn) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TimeColumn)
	}
	out := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		ts, err := RowTime(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = ts
	}
	return out, nil
}

// ToFloat converts numeric cell values. Booleans and text are not numbers.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
