package excel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/reportops/core/pkg/runner"
)

// ErrNoRows reports that the result set was empty; no artifact is written
// for zero rows.
var ErrNoRows = errors.New("result set has no rows")

const sheetName = "Report"

// Generate streams the result set into an .xlsx file at path and returns
// the on-disk file size. The stream writer spills rows to a temp file as
// they are written, so memory use stays bounded regardless of row count.
// Callers must treat any error as "no artifact": the record is only marked
// SUCCESS after Generate returns cleanly.
func Generate(rs *runner.ResultSet, path string) (int64, error) {
	if rs == nil || rs.RowCount() == 0 {
		return 0, ErrNoRows
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return 0, fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(rs.Columns))
	for i, col := range rs.Columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range rs.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, fmt.Errorf("failed to compute cell name: %w", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := sw.SetRow(cell, values); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush rows: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// cellValue normalizes a database value into something the stream writer
// renders sensibly.
func cellValue(v any) interface{} {
	switch n := v.(type) {
	case nil:
		return ""
	case bool, string, float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return n
	case time.Time:
		return n
	case []byte:
		return string(n)
	default:
		return fmt.Sprint(n)
	}
}
