package ingest

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainSpool(t *testing.T, s *Spool) [][]any {
	t.Helper()

	reader, err := s.Batches()
	require.NoError(t, err)

	var rows [][]any
	for {
		batch, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, batch...)
	}
	return rows
}

func TestSpool_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rows      int
		batchSize int
	}{
		{name: "empty spool", rows: 0, batchSize: 3},
		{name: "fewer rows than one batch", rows: 2, batchSize: 3},
		{name: "exactly one batch", rows: 3, batchSize: 3},
		{name: "uneven final batch", rows: 7, batchSize: 3},
		{name: "many batches", rows: 25, batchSize: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := NewSpool(t.TempDir(), tt.batchSize)
			require.NoError(t, err)
			defer s.Close() //nolint:errcheck

			for i := 0; i < tt.rows; i++ {
				require.NoError(t, s.Append([]any{int64(i), fmt.Sprintf("row-%d", i)}))
			}
			require.NoError(t, s.Finalize())
			assert.Equal(t, tt.rows, s.Rows())

			rows := drainSpool(t, s)
			require.Len(t, rows, tt.rows)
			for i, row := range rows {
				assert.Equal(t, []any{int64(i), fmt.Sprintf("row-%d", i)}, row)
			}
		})
	}
}

func TestSpool_BatchSizes(t *testing.T) {
	t.Parallel()

	s, err := NewSpool(t.TempDir(), 4)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append([]any{int64(i)}))
	}
	require.NoError(t, s.Finalize())

	reader, err := s.Batches()
	require.NoError(t, err)

	var sizes []int
	for {
		batch, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)
}

func TestSpool_PreservesValueTypes(t *testing.T) {
	t.Parallel()

	s, err := NewSpool(t.TempDir(), DefaultBatchSize)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	row := []any{
		nil,
		true,
		int64(9223372036854775805),
		2.5,
		"text",
		[]any{int64(1), "two"},
		map[string]any{"k": int64(3)},
	}
	require.NoError(t, s.Append(row))
	require.NoError(t, s.Finalize())

	rows := drainSpool(t, s)
	require.Len(t, rows, 1)
	got := rows[0]

	assert.Nil(t, got[0])
	assert.Equal(t, true, got[1])
	assert.Equal(t, int64(9223372036854775805), got[2], "large integers must not widen to float64")
	assert.Equal(t, 2.5, got[3])
	assert.Equal(t, "text", got[4])
	assert.Equal(t, []any{int64(1), "two"}, got[5])
	assert.Equal(t, map[string]any{"k": int64(3)}, got[6])
}

func TestSpool_AppendAfterFinalize(t *testing.T) {
	t.Parallel()

	s, err := NewSpool(t.TempDir(), 2)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	require.NoError(t, s.Finalize())
	assert.Error(t, s.Append([]any{int64(1)}))
}

func TestSpool_BatchesBeforeFinalize(t *testing.T) {
	t.Parallel()

	s, err := NewSpool(t.TempDir(), 2)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	_, err = s.Batches()
	assert.Error(t, err)
}

func TestSpool_CloseRemovesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewSpool(dir, 2)
	require.NoError(t, err)

	name := s.f.Name()
	require.NoError(t, s.Append([]any{int64(1)}))
	require.NoError(t, s.Finalize())
	require.NoError(t, s.Close())

	assert.NoFileExists(t, name)
	assert.NoError(t, s.Close(), "close is idempotent")
}
