package table

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
)

// TimeColumn is the derived column every fetched row carries.
const TimeColumn = "posted_time_jst"

// ErrMissingColumn is returned when an operation needs a column the table lacks.
var ErrMissingColumn = errors.New("missing column")

// Row maps column name to cell value. Absent keys are empty cells.
type Row map[string]any

// Table is an ordered set of rows plus the union of their column names.
type Table struct {
	Columns []string
	Rows    []Row
}

// FromRecords builds a table from flattened records. The time column comes
// first when present, the rest are sorted by name.
func FromRecords(recs []record.Flat) *Table {
	seen := map[string]struct{}{}
	t := &Table{Rows: make([]Row, 0, len(recs))}
	for _, rec := range recs {
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = v
			seen[k] = struct{}{}
		}
		t.Rows = append(t.Rows, row)
	}
	t.Columns = orderColumns(seen)
	return t
}

func orderColumns(seen map[string]struct{}) []string {
	cols := make([]string, 0, len(seen))
	_, hasTime := seen[TimeColumn]
	for k := range seen {
		if k == TimeColumn {
			continue
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if hasTime {
		cols = append([]string{TimeColumn}, cols...)
	}
	return cols
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ParseTimes replaces every posted_time_jst cell with a time.Time.
func (t *Table) ParseTimes() error {
	if !t.HasColumn(TimeColumn) {
		return fmt.Errorf("%w: %s", ErrMissingColumn, TimeColumn)
	}
	for i, r := range t.Rows {
		ts, err := RowTime(r)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		r[TimeColumn] = ts
	}
	return nil
}

// SortByTime orders rows ascending by posted_time_jst. The sort is stable.
func (t *Table) SortByTime() error {
	if !t.HasColumn(TimeColumn) {
		return fmt.Errorf("%w: %s", ErrMissingColumn, TimeColumn)
	}
	type keyed struct {
		at  time.Time
		row Row
	}
	rows := make([]keyed, len(t.Rows))
	for i, r := range t.Rows {
		ts, err := RowTime(r)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = keyed{at: ts, row: r}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].at.Before(rows[b].at)
	})
	for i := range rows {
		t.Rows[i] = rows[i].row
	}
	return nil
}

// RowTime reads the posted_time_jst cell of a row as a time.
func RowTime(r Row) (time.Time, error) {
	v, ok := r[TimeColumn]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("%w: %s is empty", ErrMissingColumn, TimeColumn)
	}
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return record.ParseJST(x)
	default:
		return time.Time{}, fmt.Errorf("%w: %s has type %T", record.ErrTypeConversion, TimeColumn, v)
	}
}
