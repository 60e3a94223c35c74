package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dialect selects identifier quoting and bind-placeholder style for the
// destination engine.
type Dialect int

const (
	// DialectPostgres uses "ident" quoting and $n placeholders.
	DialectPostgres Dialect = iota
	// DialectMySQL uses `ident` quoting and ? placeholders.
	DialectMySQL
	// DialectMSSQL uses [ident] quoting and @pn placeholders.
	DialectMSSQL
	// DialectSQLite uses "ident" quoting and ? placeholders.
	DialectSQLite
)

// QuoteIdent quotes an arbitrary identifier (spaces, reserved words and
// mixed case included) for the dialect.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case DialectMSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// placeholder returns the 1-based bind placeholder n.
func (d Dialect) placeholder(n int) string {
	switch d {
	case DialectPostgres:
		return "$" + strconv.Itoa(n)
	case DialectMSSQL:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// Materialize (re)creates table from the finalized schema and bulk-loads
// the spool into it: drop any existing table of the same name, create a new
// one whose columns are exactly `columns` in order (typed per the schema),
// then stream the spool back out issuing one parameterized multi-row
// insert per batch.
//
// The operation is destructive — there is no merge or append mode — and
// the destination table is exclusively owned by this call. Any engine
// error aborts the whole materialization and surfaces to the caller
// unretried; no partial-table cleanup is attempted beyond what the
// engine's own transaction boundary provides.
func Materialize(ctx context.Context, db *sql.DB, dialect Dialect, table string, columns []string, schema *Schema, spool *Spool) error {
	if len(columns) == 0 {
		return errors.New("ingest: no columns to materialize")
	}

	qTable := dialect.QuoteIdent(table)
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+qTable); err != nil {
		return fmt.Errorf("ingest: drop table %s: %w", table, err)
	}

	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		defs = append(defs, dialect.QuoteIdent(col)+" "+schema.TypeOf(col).String())
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", qTable, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ingest: create table %s: %w", table, err)
	}

	stmt, err := db.PrepareContext(ctx, buildInsertSQL(dialect, qTable, len(columns)))
	if err != nil {
		return fmt.Errorf("ingest: prepare insert for %s: %w", table, err)
	}
	defer func() {
		_ = stmt.Close() // Ignore close error during statement cleanup
	}()

	batches, err := spool.Batches()
	if err != nil {
		return err
	}
	for {
		batch, err := batches.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := insertBatch(ctx, db, stmt, len(columns), batch); err != nil {
			return fmt.Errorf("ingest: insert into %s: %w", table, err)
		}
	}
	return nil
}

// buildInsertSQL constructs the per-row parameterized INSERT statement.
// Pure so placeholder numbering can be tested without a database.
func buildInsertSQL(dialect Dialect, qTable string, width int) string {
	placeholders := make([]string, width)
	for i := range placeholders {
		placeholders[i] = dialect.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", qTable, strings.Join(placeholders, ", "))
}

// insertBatch executes the prepared insert once per row inside a single
// transaction, so each spool batch commits as a unit. Every row must match
// the DDL's positional column count: rows wider than width (possible
// before the header-capture quirk took effect) are truncated, shorter
// ones padded with NULL.
func insertBatch(ctx context.Context, db *sql.DB, stmt *sql.Stmt, width int, rows [][]any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txStmt := tx.StmtContext(ctx, stmt)
	for _, row := range rows {
		args := make([]any, width)
		for j := 0; j < width; j++ {
			if j < len(row) {
				v, err := bindValue(row[j])
				if err != nil {
					_ = tx.Rollback()
					return err
				}
				args[j] = v
			}
		}
		if _, err := txStmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// bindValue converts a spooled value to a driver-friendly bind parameter.
// Nested structures are bound as their JSON text.
func bindValue(v any) (any, error) {
	switch v.(type) {
	case []any, map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("ingest: encode json value: %w", err)
		}
		return string(raw), nil
	default:
		return v, nil
	}
}
