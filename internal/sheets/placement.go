package sheets

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sheetpipe/sheetpipe/internal/query"
)

// Default placement tuning. The chunk size bounds per-call payloads and
// the pause spaces calls out under the service's rate limits.
const (
	DefaultChunkRows = 1000
	DefaultPause     = 500 * time.Millisecond

	// tempSheetName is used while replacing a spreadsheet's only sheet;
	// the service refuses to delete the last remaining sheet.
	tempSheetName = "__temp__"
)

// Service is the remote spreadsheet service boundary. Implementations are
// expected to surface the service's own errors verbatim; writes already
// committed are never rolled back.
type Service interface {
	// SheetNames lists the sheet titles of a spreadsheet.
	SheetNames(ctx context.Context, spreadsheetID string) ([]string, error)
	// CreateSheet adds an empty sheet.
	CreateSheet(ctx context.Context, spreadsheetID, sheetName string) error
	// DeleteSheet removes a sheet.
	DeleteSheet(ctx context.Context, spreadsheetID, sheetName string) error
	// SheetSize returns the current grid size as (columns, rows).
	SheetSize(ctx context.Context, spreadsheetID, sheetName string) (int, int, error)
	// Resize grows the grid by the given number of columns and rows.
	Resize(ctx context.Context, spreadsheetID, sheetName string, addColumns, addRows int) error
	// WriteRange writes a block of values at the given A1 range.
	WriteRange(ctx context.Context, spreadsheetID, rangeRef string, values [][]any) error
}

// ErrEmptyTable is returned when a placement is asked to write a table
// with no header.
var ErrEmptyTable = errors.New("sheets: empty table")

// Placer writes result tables into a spreadsheet, chunked to respect the
// service's payload and rate limits.
type Placer struct {
	Svc Service
	// Pause separates consecutive service calls; DefaultPause when zero,
	// negative disables (tests).
	Pause time.Duration
	// ChunkRows bounds rows per write; DefaultChunkRows when zero.
	ChunkRows int
}

func (p *Placer) pause() {
	d := p.Pause
	if d == 0 {
		d = DefaultPause
	}
	if d > 0 {
		time.Sleep(d)
	}
}

func (p *Placer) chunkRows() int {
	if p.ChunkRows <= 0 {
		return DefaultChunkRows
	}
	return p.ChunkRows
}

// Replace clears the target sheet and writes table into it from A1. The
// sheet is deleted and recreated rather than cleared in place, so stale
// values and formatting cannot survive; when it is the spreadsheet's only
// sheet, a temporary sheet covers the gap.
func (p *Placer) Replace(ctx context.Context, spreadsheetID, sheetName string, table query.Table) error {
	if len(table.Header) == 0 {
		return ErrEmptyTable
	}

	names, err := p.Svc.SheetNames(ctx, spreadsheetID)
	if err != nil {
		return err
	}
	p.pause()

	onlyOne := len(names) == 1
	exists := false
	for _, n := range names {
		if n == sheetName {
			exists = true
			break
		}
	}

	if exists {
		if onlyOne {
			if err := p.Svc.CreateSheet(ctx, spreadsheetID, tempSheetName); err != nil {
				return err
			}
			p.pause()
		}
		if err := p.Svc.DeleteSheet(ctx, spreadsheetID, sheetName); err != nil {
			return err
		}
		p.pause()
		if onlyOne {
			if err := p.Svc.DeleteSheet(ctx, spreadsheetID, tempSheetName); err != nil {
				return err
			}
			p.pause()
		}
	}

	if err := p.Svc.CreateSheet(ctx, spreadsheetID, sheetName); err != nil {
		return err
	}
	p.pause()

	return p.writeAt(ctx, spreadsheetID, sheetName, "A1", tableValues(table))
}

// PlaceChunks writes table into an existing sheet, growing the grid first
// when the table is larger than the sheet, then writing in chunks of up
// to ChunkRows rows.
func (p *Placer) PlaceChunks(ctx context.Context, spreadsheetID, sheetName string, table query.Table) error {
	if len(table.Header) == 0 {
		return ErrEmptyTable
	}

	cols, rows, err := p.Svc.SheetSize(ctx, spreadsheetID, sheetName)
	if err != nil {
		return err
	}

	values := tableValues(table)
	addCols := len(table.Header) + 1 - cols
	addRows := len(values) + 1 - rows
	if addCols > 0 || addRows > 0 {
		if err := p.Svc.Resize(ctx, spreadsheetID, sheetName, max(0, addCols), max(0, addRows)); err != nil {
			return err
		}
		p.pause()
	}

	chunk := p.chunkRows()
	rowIndex := 1
	for start := 0; start < len(values); start += chunk {
		end := min(start+chunk, len(values))
		startCell := "A" + strconv.Itoa(rowIndex)
		if err := p.writeAt(ctx, spreadsheetID, sheetName, startCell, values[start:end]); err != nil {
			return err
		}
		p.pause()
		rowIndex += chunk
	}
	return nil
}

// writeAt writes a block of values with its top-left corner at startCell.
func (p *Placer) writeAt(ctx context.Context, spreadsheetID, sheetName, startCell string, values [][]any) error {
	if len(values) == 0 {
		return nil
	}
	width := 0
	for _, row := range values {
		if len(row) > width {
			width = len(row)
		}
	}
	endCell := TranslateCell(startCell, len(values), width)
	return p.Svc.WriteRange(ctx, spreadsheetID, RangeRef(sheetName, startCell, endCell), values)
}

// tableValues flattens a result table into the row-major value grid the
// service expects, header first.
func tableValues(t query.Table) [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	head := make([]any, len(t.Header))
	for i, h := range t.Header {
		head[i] = h
	}
	out = append(out, head)
	out = append(out, t.Rows...)
	return out
}

