package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Value
	}{
		{name: "empty cell is null", raw: "", want: Null()},
		{name: "whitespace-only cell is null", raw: "   ", want: Null()},
		{name: "TRUE", raw: "TRUE", want: Bool(true)},
		{name: "False", raw: "False", want: Bool(false)},
		{name: "integer", raw: "42", want: Int(42)},
		{name: "signed integer", raw: "-17", want: Int(-17)},
		{name: "float", raw: "3.25", want: Float(3.25)},
		{name: "scientific float", raw: "1e3", want: Float(1000)},
		{name: "date only", raw: "2024-03-01", want: Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
		{name: "datetime", raw: "2024-03-01 13:30:00", want: Time(time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC))},
		{name: "us date", raw: "3/1/2024", want: Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
		{name: "plain text", raw: "hello", want: String("hello")},
		{name: "text with leading digit stays text", raw: "1 Main St", want: String("1 Main St")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DecodeCell(tt.raw))
		})
	}

	t.Run("integer beyond 64 bits stays text", func(t *testing.T) {
		t.Parallel()
		v := DecodeCell("92233720368547758060")
		assert.Equal(t, KindString, v.Kind())
		assert.Equal(t, TypeText, Classify(v))
	})

	t.Run("true as bare word is boolean not text", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, TypeBoolean, Classify(DecodeCell("true")))
	})
}

func TestValue_Scalar(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 13, 30, 45, 0, time.UTC)
	tests := []struct {
		name string
		v    Value
		want any
	}{
		{name: "null", v: Null(), want: nil},
		{name: "bool", v: Bool(true), want: true},
		{name: "int", v: Int(9), want: int64(9)},
		{name: "float", v: Float(2.5), want: 2.5},
		{name: "string", v: String("s"), want: "s"},
		{name: "timestamp renders with clock", v: Time(ts), want: "2024-03-01 13:30:45"},
		{name: "date renders without clock", v: Date(ts), want: "2024-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.v.Scalar())
		})
	}
}

func TestValue_render(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Null().render())
	assert.Equal(t, "true", Bool(true).render())
	assert.Equal(t, "42", Int(42).render())
	assert.Equal(t, "2.5", Float(2.5).render())
	assert.Equal(t, "name", String("name").render())
	assert.Equal(t, "2024-03-01", Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).render())
}
