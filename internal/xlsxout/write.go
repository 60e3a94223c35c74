// Package xlsxout writes query result tables to xlsx files for download.
package xlsxout

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sheetpipe/sheetpipe/internal/query"
)

// ErrEmptyTable is returned when asked to export a table with no header
// and no rows. An empty workbook is useless to the caller, so the export
// is rejected up front rather than producing one.
var ErrEmptyTable = errors.New("xlsxout: table cannot be empty")

// Write saves table to an xlsx file at path, header row first. The stream
// writer keeps memory flat for large results.
func Write(table query.Table, path, sheetName string) error {
	if len(table.Header) == 0 && len(table.Rows) == 0 {
		return ErrEmptyTable
	}
	if sheetName == "" {
		sheetName = "Sheet"
	}

	wb := excelize.NewFile()
	defer func() {
		_ = wb.Close() // Ignore close error
	}()

	if err := wb.SetSheetName(wb.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("xlsxout: rename sheet: %w", err)
	}
	sw, err := wb.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("xlsxout: stream writer: %w", err)
	}

	head := make([]any, len(table.Header))
	for i, h := range table.Header {
		head[i] = h
	}
	if err := sw.SetRow("A1", head); err != nil {
		return fmt.Errorf("xlsxout: write header: %w", err)
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsxout: cell name: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsxout: write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsxout: flush: %w", err)
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("xlsxout: save %s: %w", path, err)
	}
	return nil
}
