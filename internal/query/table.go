// Package query executes parameterized SQL against registered databases,
// including the two-phase template expansion where one query's result rows
// drive repeated executions of a second query.
package query

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table is a query result: a header of column names plus data rows whose
// values are aligned positionally to those names. On the wire it is a
// single sequence where element 0 is the header and elements 1..N are the
// data rows.
type Table struct {
	Header []string
	Rows   [][]any
}

// MarshalJSON renders the wire shape: [[col...], [v...], ...].
func (t Table) MarshalJSON() ([]byte, error) {
	out := make([][]any, 0, len(t.Rows)+1)
	head := make([]any, len(t.Header))
	for i, h := range t.Header {
		head[i] = h
	}
	out = append(out, head)
	out = append(out, t.Rows...)
	return json.Marshal(out)
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// NormalizeValue converts a scanned database value to a serializable
// scalar. Byte slices become strings and times render in a stable text
// form; everything else passes through.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}

// RenderValue returns the string form of a table value used for template
// placeholder substitution.
func RenderValue(v any) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
