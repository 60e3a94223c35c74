// Package ingest streams tabular sources (xlsx sheets and delimited text)
// into a relational database. It infers a column schema by sampling every
// cell, spools normalized rows to a temporary file in fixed-size batches,
// and bulk-loads the spool into a freshly created destination table.
package ingest

import (
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	// KindNull is an absent value.
	KindNull ValueKind = iota
	// KindBool is a boolean value.
	KindBool
	// KindInt is a signed integer value.
	KindInt
	// KindFloat is a floating-point value.
	KindFloat
	// KindString is a text value.
	KindString
	// KindTime is a temporal value, with or without a clock component.
	KindTime
	// KindList is an ordered collection.
	KindList
	// KindObject is a key/value collection.
	KindObject
)

// Value is the tagged variant a source cell decodes into. A cell may carry a
// boolean, a number, text, a temporal value, or a nested structure; Classify
// and Reconcile are pure functions over this type.
type Value struct {
	kind     ValueKind
	b        bool
	i        int64
	f        float64
	s        string
	t        time.Time
	dateOnly bool
	j        any
}

// Null returns the absent-value marker.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a text Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Time returns a temporal Value carrying both date and clock.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Date returns a temporal Value carrying only a date.
func Date(t time.Time) Value { return Value{kind: KindTime, t: t, dateOnly: true} }

// List returns an ordered-collection Value.
func List(v []any) Value { return Value{kind: KindList, j: v} }

// Object returns a key/value-collection Value.
func Object(m map[string]any) Value { return Value{kind: KindObject, j: m} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Scalar converts v to the serializable form used for spooling and for
// bind parameters. Temporal values render as "yyyy-mm-dd hh:mm:ss" text
// (date-only values as "yyyy-mm-dd") so they insert cleanly into timestamp
// and date columns regardless of driver.
func (v Value) Scalar() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		if v.dateOnly {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02 15:04:05")
	case KindList, KindObject:
		return v.j
	default:
		return nil
	}
}

// render returns the string form of v used when a row's leading cells
// replace the header (see normalizeRow).
func (v Value) render() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindTime:
		s, _ := v.Scalar().(string)
		return s
	default:
		return ""
	}
}

// cellDatePatterns cover the date/datetime renderings xlsx cells commonly
// produce. clock marks formats that carry a time-of-day component.
var cellDatePatterns = []struct {
	layout string
	clock  bool
}{
	{layout: time.RFC3339, clock: true},
	{layout: "2006-01-02T15:04:05", clock: true},
	{layout: "2006-01-02 15:04:05", clock: true},
	{layout: "1/2/2006 15:04:05", clock: true},
	{layout: "1/2/06 15:04", clock: true},
	{layout: "2006-01-02", clock: false},
	{layout: "1/2/2006", clock: false},
	{layout: "01-02-06", clock: false},
	{layout: "02.01.2006", clock: false},
}

// DecodeCell interprets a raw spreadsheet cell string as a typed Value.
// The streaming xlsx reader yields every cell as text; this restores the
// native typing the inference engine classifies on. Empty cells decode to
// Null, matching the absence marker used when padding short rows.
func DecodeCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null()
	}
	switch s {
	case "TRUE", "True", "true":
		return Bool(true)
	case "FALSE", "False", "false":
		return Bool(false)
	}
	if isIntegerShaped(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i)
		}
		// Magnitude beyond 64 bits: keep the digits as text.
		return String(raw)
	}
	if isFloatCandidate(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	for _, p := range cellDatePatterns {
		if t, err := time.Parse(p.layout, s); err == nil {
			if p.clock {
				return Time(t)
			}
			return Date(t)
		}
	}
	return String(raw)
}

// isIntegerShaped reports whether s is an optionally signed run of digits.
func isIntegerShaped(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '+' || s[0] == '-' {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isFloatCandidate filters out strings like "nan" or "1e" lookalikes that
// ParseFloat would otherwise accept or reject expensively.
func isFloatCandidate(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == '+' || r == '-' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return hasDigit
}
