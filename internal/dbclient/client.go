// Package dbclient opens connections to registered databases and executes
// SQL against them. It speaks postgres, mysql, mssql, and sqlite through
// database/sql, and implements query.Executor for the template expander.
package dbclient

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"    // mysql driver
	_ "github.com/jackc/pgx/v5/stdlib"    // postgres driver
	_ "github.com/microsoft/go-mssqldb"   // mssql driver
	_ "modernc.org/sqlite"                // sqlite driver

	"github.com/sheetpipe/sheetpipe/internal/ingest"
	"github.com/sheetpipe/sheetpipe/internal/query"
	"github.com/sheetpipe/sheetpipe/internal/registry"
)

// Client resolves database ids through the registration store and opens
// short-lived connections per call, like the system it replaces. There is
// no shared connection cache; concurrent calls each get their own.
type Client struct {
	Registry registry.Store
}

// Dialect returns the materializer dialect for a registration.
func Dialect(db registry.Database) ingest.Dialect {
	switch db.Driver {
	case "mysql":
		return ingest.DialectMySQL
	case "mssql", "sqlserver":
		return ingest.DialectMSSQL
	case "sqlite":
		return ingest.DialectSQLite
	default:
		return ingest.DialectPostgres
	}
}

// Open opens a database handle for a registration. The caller owns the
// handle and must close it.
func Open(db registry.Database) (*sql.DB, error) {
	driverName, dsn := dsnFor(db)
	handle, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbclient: open %s: %w", db.ID, err)
	}
	return handle, nil
}

// dsnFor builds the driver name and DSN for a registration.
func dsnFor(db registry.Database) (string, string) {
	port := db.Port
	switch db.Driver {
	case "mysql":
		if port == "" {
			port = "3306"
		}
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", db.User, db.Password, db.Host, port, db.Database)
	case "mssql", "sqlserver":
		if port == "" {
			port = "1433"
		}
		return "sqlserver", fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s", db.User, db.Password, db.Host, port, db.Database)
	case "sqlite":
		// Host is unused; Database is the file path (or :memory:).
		return "sqlite", db.Database
	default:
		if port == "" {
			port = "5432"
		}
		return "pgx", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			db.Host, port, db.User, db.Password, db.Database)
	}
}

// Ping reports whether a connection can be established for a registration.
func Ping(ctx context.Context, db registry.Database) error {
	handle, err := Open(db)
	if err != nil {
		return err
	}
	defer func() {
		_ = handle.Close() // Ignore close error
	}()
	return handle.PingContext(ctx)
}

// Query executes one SQL statement against the database registered under
// databaseID and returns the result table: the first element is the
// column headers, the rest are data rows with values converted to
// serializable scalars. Engine errors are returned verbatim, unretried.
func (c *Client) Query(ctx context.Context, databaseID, sqlText string) (query.Table, error) {
	reg, err := c.Registry.Get(databaseID)
	if err != nil {
		return query.Table{}, err
	}
	handle, err := Open(reg)
	if err != nil {
		return query.Table{}, err
	}
	defer func() {
		_ = handle.Close() // Ignore close error
	}()
	return QueryDB(ctx, handle, sqlText)
}

// QueryDB executes sqlText on an open handle and collects the full result.
func QueryDB(ctx context.Context, db *sql.DB, sqlText string) (query.Table, error) {
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Table{}, err
	}
	defer func() {
		_ = rows.Close() // Ignore close error
	}()

	cols, err := rows.Columns()
	if err != nil {
		return query.Table{}, err
	}

	table := query.Table{Header: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return query.Table{}, err
		}
		row := make([]any, len(cols))
		for i, v := range values {
			row[i] = query.NormalizeValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return query.Table{}, err
	}
	return table, nil
}
