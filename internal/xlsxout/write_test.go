package xlsxout

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sheetpipe/sheetpipe/internal/query"
)

func readBack(t *testing.T, path, sheet string) [][]string {
	t.Helper()

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = wb.Close() // Ignore close error
	}()

	rows, err := wb.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("header then rows", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.xlsx")
		table := query.Table{
			Header: []string{"id", "city"},
			Rows: [][]any{
				{int64(1), "Reno"},
				{int64(2), "Truckee"},
			},
		}
		require.NoError(t, Write(table, path, "Data"))

		rows := readBack(t, path, "Data")
		assert.Equal(t, [][]string{
			{"id", "city"},
			{"1", "Reno"},
			{"2", "Truckee"},
		}, rows)
	})

	t.Run("header-only table exports the header", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.xlsx")
		require.NoError(t, Write(query.Table{Header: []string{"a", "b"}}, path, "Data"))

		rows := readBack(t, path, "Data")
		assert.Equal(t, [][]string{{"a", "b"}}, rows)
	})

	t.Run("empty sheet name falls back", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.xlsx")
		require.NoError(t, Write(query.Table{Header: []string{"a"}}, path, ""))

		wb, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer func() {
			_ = wb.Close() // Ignore close error
		}()
		assert.Equal(t, []string{"Sheet"}, wb.GetSheetList())
	})

	t.Run("fully empty table is rejected", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.xlsx")
		err := Write(query.Table{}, path, "Data")
		assert.ErrorIs(t, err, ErrEmptyTable)
		assert.NoFileExists(t, path)
	})
}
