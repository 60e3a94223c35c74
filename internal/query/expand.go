package query

import (
	"context"
	"strings"
)

// Executor runs one SQL statement against a registered database and
// returns its result table. Engine errors are returned verbatim.
type Executor interface {
	Query(ctx context.Context, databaseID, query string) (Table, error)
}

// Expander runs a query directly, or — when a sub-query is supplied —
// expands a templated query once per row of the sub-query's result.
type Expander struct {
	Exec Executor
}

// Run executes query against the database identified by databaseID.
//
// Without a subQuery this is a single execution: the result table is
// returned, or the engine's error propagated unretried.
//
// With a subQuery, the subQuery runs first to obtain a driver table. For
// every data row of that table, each `{{column}}` placeholder in query is
// substituted with the row's value for that column, and the substituted
// query executed. Substitution repeats for a given placeholder until no
// occurrence remains, so no placeholder text survives; a value that
// contains its own placeholder does not terminate. All result rows
// concatenate under the header of the last successful execution; the
// first error anywhere aborts the whole call and discards prior results.
//
// The per-row expansion is an explicit loop, so call depth stays constant
// no matter how many rows the driver table returns.
func (e *Expander) Run(ctx context.Context, databaseID, query, subQuery string) (Table, error) {
	if subQuery == "" {
		return e.Exec.Query(ctx, databaseID, query)
	}

	driver, err := e.Exec.Query(ctx, databaseID, subQuery)
	if err != nil {
		return Table{}, err
	}

	var out Table
	for _, row := range driver.Rows {
		q := substituteRow(query, driver.Header, row)
		result, err := e.Exec.Query(ctx, databaseID, q)
		if err != nil {
			return Table{}, err
		}
		out.Header = result.Header
		out.Rows = append(out.Rows, result.Rows...)
	}
	return out, nil
}

// substituteRow replaces every {{column}} placeholder in q with the row's
// value for that column, repeating per placeholder while any occurrence
// remains.
func substituteRow(q string, header []string, row []any) string {
	for i, col := range header {
		if i >= len(row) {
			break
		}
		key := "{{" + col + "}}"
		val := RenderValue(row[i])
		for strings.Contains(q, key) {
			q = strings.ReplaceAll(q, key, val)
		}
	}
	return q
}
