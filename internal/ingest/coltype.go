package ingest

// ColumnType is the inferred storage type for a destination-table column.
// The numeric value doubles as the casting-hierarchy rank used during
// reconciliation: a higher-ranked type can always be stored in a
// lower-ranked one, so the lowest rank observed for a column wins.
type ColumnType int

const (
	// TypeText is the rank-0 fallback; any value fits.
	TypeText ColumnType = iota
	// TypeReal is a floating-point column.
	TypeReal
	// TypeBigint is a 64-bit integer column.
	TypeBigint
	// TypeInteger is a 32-bit integer column.
	TypeInteger
	// TypeJSON holds nested list/object values.
	TypeJSON
	// TypeTimestamp holds date-and-time values.
	TypeTimestamp
	// TypeDate holds date-only values.
	TypeDate
	// TypeBoolean is the highest rank; it also seeds reconciliation so the
	// first observed value always decides the initial type.
	TypeBoolean
)

// Integer magnitude bounds used by Classify. Values beyond the 32-bit-like
// bound become bigint; beyond the 64-bit-like bound they stay text.
const (
	integerBound = 2147483645
	bigintBound  = 9223372036854775805
)

// String returns the engine's native type keyword.
func (ct ColumnType) String() string {
	switch ct {
	case TypeText:
		return "text"
	case TypeReal:
		return "real"
	case TypeBigint:
		return "bigint"
	case TypeInteger:
		return "integer"
	case TypeJSON:
		return "json"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeBoolean:
		return "boolean"
	default:
		return "text"
	}
}

// Classify maps a single value to its column type. It never fails; values
// that fit no other category fall back to text.
func Classify(v Value) ColumnType {
	switch v.Kind() {
	case KindNull, KindBool:
		return TypeBoolean
	case KindString:
		return TypeText
	case KindFloat:
		return TypeReal
	case KindInt:
		if v.i < -bigintBound || v.i > bigintBound {
			return TypeText
		}
		if v.i < -integerBound || v.i > integerBound {
			return TypeBigint
		}
		return TypeInteger
	case KindList, KindObject:
		return TypeJSON
	case KindTime:
		if v.dateOnly {
			return TypeDate
		}
		return TypeTimestamp
	default:
		return TypeText
	}
}

// Reconcile folds one more observed value into a column's running type.
// Rank is a generality ordering, not a casting-safety proof: whichever of
// the previous type and the value's classified type ranks lower wins.
func Reconcile(prev ColumnType, v Value) ColumnType {
	if ct := Classify(v); ct < prev {
		return ct
	}
	return prev
}

// Schema is an order-preserving mapping from column name to its reconciled
// ColumnType. It starts empty, is mutated once per observed cell, and is
// consumed exactly once by the materializer to emit DDL.
type Schema struct {
	names []string
	types map[string]ColumnType
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{types: make(map[string]ColumnType)}
}

// Observe reconciles one (column, value) observation. The first value for a
// column reconciles against a boolean seed, so it always decides the
// initial type.
func (s *Schema) Observe(column string, v Value) {
	prev, ok := s.types[column]
	if !ok {
		s.names = append(s.names, column)
		prev = TypeBoolean
	}
	s.types[column] = Reconcile(prev, v)
}

// SeedText registers column with the rank-0 text type space. Used by the
// delimited-text orchestrator, which never re-classifies.
func (s *Schema) SeedText(column string) {
	if _, ok := s.types[column]; !ok {
		s.names = append(s.names, column)
		s.types[column] = TypeText
	}
}

// Columns returns the column names in insertion order.
func (s *Schema) Columns() []string { return s.names }

// TypeOf returns the reconciled type of column, defaulting to text.
func (s *Schema) TypeOf(column string) ColumnType {
	if ct, ok := s.types[column]; ok {
		return ct
	}
	return TypeText
}

// Len returns the number of columns observed so far.
func (s *Schema) Len() int { return len(s.names) }
