package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

const sheetName = "videos"

// ReadXLSX loads the first sheet of a workbook. The first row is the header.
func ReadXLSX(r io.Reader) (*table.Table, error) {
	log := logger.New().WithField("component", "dataset.xlsx")
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	log.WithField("sheet", sheets[0]).WithField("rows", len(rows)-1).Debug("workbook loaded")

	header := rows[0]
	body := rows[1:]
	// excelize trims trailing empty cells, pad back to header width
	for i, r := range body {
		if len(r) > len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i+2, len(r), len(header))
		}
		for len(r) < len(header) {
			r = append(r, "")
		}
		body[i] = r
	}
	return fromStrings(header, body)
}

// WriteXLSX writes the table as a single-sheet workbook. Numbers and
// booleans keep their cell types.
func WriteXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range t.Rows {
		cells := make([]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = xlsxCell(r[c])
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, addr, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func xlsxCell(v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int, int32, int64, float32, float64, bool:
		return x
	default:
		return FormatCell(x)
	}
}
