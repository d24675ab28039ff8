package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

// Format is a supported tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName picks the format from a file extension. Anything that is
// not a workbook is read as CSV.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Read decodes a table in the given format.
func Read(r io.Reader, f Format) (*table.Table, error) {
	if f == FormatXLSX {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// Write encodes a table in the given format.
func Write(w io.Writer, t *table.Table, f Format) error {
	if f == FormatXLSX {
		return WriteXLSX(w, t)
	}
	return WriteCSV(w, t)
}

// FormatCell renders one cell the way it is written to CSV.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.In(record.JST).Format(record.TimeLayout)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindBool
	kindString
)

// fromStrings builds a table from raw cells, inferring a type per column.
func fromStrings(header []string, body [][]string) (*table.Table, error) {
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("duplicate column %q at position %d", h, i+1)
		}
		seen[h] = struct{}{}
	}

	kinds := make([]columnKind, len(header))
	for j := range header {
		kinds[j] = inferKind(body, j)
	}

	t := &table.Table{Columns: append([]string(nil), header...), Rows: make([]table.Row, 0, len(body))}
	for _, rec := range body {
		row := make(table.Row, len(header))
		for j, h := range header {
			if j >= len(rec) || rec[j] == "" {
				row[h] = nil
				continue
			}
			row[h] = convert(rec[j], kinds[j])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// inferKind picks the narrowest kind every non-empty cell of col parses as:
// integer, then float, then true/false, else text.
func inferKind(body [][]string, col int) columnKind {
	isInt, isFloat, isBool := true, true, true
	found := false
	for _, rec := range body {
		if col >= len(rec) || rec[col] == "" {
			continue
		}
		found = true
		s := strings.TrimSpace(rec[col])
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool && !strings.EqualFold(s, "true") && !strings.EqualFold(s, "false") {
			isBool = false
		}
		if !isInt && !isFloat && !isBool {
			return kindString
		}
	}
	switch {
	case !found:
		return kindString
	case isInt:
		return kindInt
	case isFloat:
		return kindFloat
	case isBool:
		return kindBool
	}
	return kindString
}

func convert(s string, k columnKind) any {
	switch k {
	case kindInt:
		i, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return i
	case kindFloat:
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	case kindBool:
		return strings.EqualFold(strings.TrimSpace(s), "true")
	default:
		return s
	}
}
