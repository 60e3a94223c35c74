package ingest

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Logger is the minimal logging interface used by the orchestrators.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// ErrSheetNotFound is returned when the requested sheet does not exist in
// the workbook.
var ErrSheetNotFound = errors.New("ingest: sheet not found")

// Options configures an ingestion run.
type Options struct {
	// BatchSize is the spool batch size; DefaultBatchSize when zero.
	BatchSize int
	// SpoolDir is where the temporary spool file lives; the system temp
	// directory when empty.
	SpoolDir string
	// Logger receives progress lines; discarded when nil.
	Logger Logger
}

func (o Options) logger() Logger {
	if o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger
}

// SheetNames returns the sheet names of an xlsx workbook.
func SheetNames(path string) ([]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open workbook %s: %w", path, err)
	}
	defer func() {
		_ = wb.Close() // Ignore close error
	}()
	return wb.GetSheetList(), nil
}

// XLSX streams one sheet of an xlsx workbook into table in db. The first
// row is the header; every following row is normalized, classified into
// the running schema cell by cell, and spooled. Once the sheet is
// exhausted the finalized schema and spool are handed to Materialize.
func XLSX(ctx context.Context, db *sql.DB, dialect Dialect, path, sheetName, tableName string, opts Options) (err error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("ingest: open workbook %s: %w", path, err)
	}
	defer func() {
		_ = wb.Close() // Ignore close error
	}()

	// The row iterator reads the sheet incrementally instead of loading
	// the whole workbook into memory.
	rows, err := wb.Rows(sheetName)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheetName)
	}
	defer func() {
		_ = rows.Close() // Ignore close error
	}()

	spool, err := NewSpool(opts.SpoolDir, opts.BatchSize)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := spool.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	logf := opts.logger()
	schema := NewSchema()
	var header []string

	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("ingest: read sheet %s: %w", sheetName, err)
		}
		if header == nil {
			header = make([]string, len(cells))
			for i, c := range cells {
				header[i] = strings.TrimSpace(c)
			}
			continue
		}

		row := make([]Value, len(cells))
		for i, c := range cells {
			row[i] = DecodeCell(c)
		}
		header, row = normalizeRow(header, row)

		scalars := make([]any, len(row))
		for i, v := range row {
			schema.Observe(header[i], v)
			scalars[i] = v.Scalar()
		}
		if err := spool.Append(scalars); err != nil {
			return err
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("ingest: iterate sheet %s: %w", sheetName, err)
	}
	if header == nil {
		return fmt.Errorf("ingest: sheet %s is empty", sheetName)
	}
	if err := spool.Finalize(); err != nil {
		return err
	}
	logf.Printf("stage=extract source=xlsx sheet=%s rows=%d columns=%d", sheetName, spool.Rows(), len(header))

	if err := Materialize(ctx, db, dialect, tableName, header, schema, spool); err != nil {
		return err
	}
	logf.Printf("stage=materialize table=%s rows=%d", tableName, spool.Rows())
	return nil
}

// Delimited streams a delimited-text source into table in db. The header
// is the first record with any byte-order mark stripped; every column is
// seeded as text and never re-classified — delimited text carries no
// native typing, and this matches the behavior of the system this
// replaces. Rows are still normalized and spooled, then materialized.
//
// comma selects the field delimiter (',' for CSV, '\t' for TSV).
func Delimited(ctx context.Context, db *sql.DB, dialect Dialect, r io.Reader, comma rune, tableName string, opts Options) (err error) {
	// BOMOverride strips a leading UTF-8 byte-order mark some exporters
	// prepend, so the first header name comes out clean.
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		return fmt.Errorf("ingest: read delimited header: %w", err)
	}
	header := make([]string, len(first))
	schema := NewSchema()
	for i, h := range first {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		schema.SeedText(header[i])
	}

	spool, err := NewSpool(opts.SpoolDir, opts.BatchSize)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := spool.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	logf := opts.logger()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("ingest: read delimited record: %w", err)
		}

		row := make([]Value, len(record))
		for i, field := range record {
			row[i] = String(field)
		}
		header, row = normalizeRow(header, row)
		for i := range row {
			schema.SeedText(header[i])
		}

		scalars := make([]any, len(row))
		for i, v := range row {
			scalars[i] = v.Scalar()
		}
		if err := spool.Append(scalars); err != nil {
			return err
		}
	}
	if err := spool.Finalize(); err != nil {
		return err
	}
	logf.Printf("stage=extract source=delimited rows=%d columns=%d", spool.Rows(), len(header))

	if err := Materialize(ctx, db, dialect, tableName, header, schema, spool); err != nil {
		return err
	}
	logf.Printf("stage=materialize table=%s rows=%d", tableName, spool.Rows())
	return nil
}

// DelimitedFile opens path, transparently decompressing .gz/.bz2/.xz/.zst
// sources, and ingests it via Delimited. The delimiter is chosen from the
// file name (.tsv uses tab, anything else a comma).
func DelimitedFile(ctx context.Context, db *sql.DB, dialect Dialect, path, tableName string, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close() // Ignore close error
	}()

	reader, closer, err := decompressedReader(f, path)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() {
			_ = closer() // Ignore close error during cleanup
		}()
	}

	comma := ','
	if strings.Contains(strings.ToLower(filepath.Base(path)), ".tsv") {
		comma = '\t'
	}
	return Delimited(ctx, db, dialect, reader, comma, tableName, opts)
}

// decompressedReader wraps f according to the compression extension on
// path, if any.
func decompressedReader(f *os.File, path string) (io.Reader, func() error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: gzip reader: %w", err)
		}
		return gzReader, gzReader.Close, nil
	case ".bz2":
		return bzip2.NewReader(f), nil, nil
	case ".xz":
		xzReader, err := xz.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: xz reader: %w", err)
		}
		return xzReader, nil, nil
	case ".zst":
		decoder, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: zstd reader: %w", err)
		}
		return decoder, func() error { decoder.Close(); return nil }, nil
	default:
		return f, nil, nil
	}
}
