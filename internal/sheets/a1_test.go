package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{3, "C"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnLetter(tt.col), "column %d", tt.col)
	}
}

func TestColumnIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		column string
		want   int
	}{
		{"A", 1},
		{"Z", 26},
		{"AA", 27},
		{"AB", 28},
		{"zz", 702},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnIndex(tt.column), "column %q", tt.column)
	}
}

func TestColumnLetter_RoundTrip(t *testing.T) {
	t.Parallel()

	for col := 1; col <= 1000; col++ {
		assert.Equal(t, col, ColumnIndex(ColumnLetter(col)))
	}
}

func TestSplitCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cell    string
		letters string
		row     int
	}{
		{"A1", "A", 1},
		{"A12", "A", 12},
		{"AB305", "AB", 305},
		{"C", "C", 0},
	}
	for _, tt := range tests {
		letters, row := SplitCoordinate(tt.cell)
		assert.Equal(t, tt.letters, letters, "cell %q", tt.cell)
		assert.Equal(t, tt.row, row, "cell %q", tt.cell)
	}
}

func TestTranslateCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cell     string
		rowDelta int
		colDelta int
		want     string
	}{
		{"A1", 0, 0, "A1"},
		{"A1", 3, 2, "C4"},
		{"B10", 5, 0, "B15"},
		{"Z1", 0, 1, "AA1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TranslateCell(tt.cell, tt.rowDelta, tt.colDelta))
	}
}

func TestRangeRef(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Data!A1:C4", RangeRef("Data", "A1", "C4"))
	assert.Equal(t, "'Monthly Totals'!A1:B2", RangeRef("Monthly Totals", "A1", "B2"))
	assert.Equal(t, "'Already Quoted'!A1:B2", RangeRef("'Already Quoted'", "A1", "B2"))
}

func TestSpreadsheetIDFromLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare id passes through", in: "1AbC_def-123", want: "1AbC_def-123"},
		{name: "full edit link", in: "https://docs.google.com/spreadsheets/d/1AbC_def-123/edit#gid=0", want: "1AbC_def-123"},
		{name: "link without trailing path", in: "https://docs.google.com/spreadsheets/d/1AbC_def-123", want: "1AbC_def-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SpreadsheetIDFromLink(tt.in))
		})
	}
}
