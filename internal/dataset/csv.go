package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

// ReadCSV parses comma-delimited text with a header row.
func ReadCSV(r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	// a UTF-8 BOM is common in spreadsheet exports
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}
	body, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return fromStrings(header, body)
}

// WriteCSV writes the table with a header row in column order.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for i, r := range t.Rows {
		for j, c := range t.Columns {
			rec[j] = FormatCell(r[c])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func trimBOM(s string) string {
	const bom = "\uFEFF"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
