package sheets

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetpipe/sheetpipe/internal/query"
)

// fakeService records calls and maintains a minimal in-memory spreadsheet
// model so the placement choreography can be asserted end to end.
type fakeService struct {
	sheets map[string]bool
	cols   int
	rows   int
	calls  []string
	writes map[string][][]any

	failCreate error
}

func newFakeService(names ...string) *fakeService {
	s := &fakeService{
		sheets: map[string]bool{},
		cols:   26,
		rows:   100,
		writes: map[string][][]any{},
	}
	for _, n := range names {
		s.sheets[n] = true
	}
	return s
}

func (s *fakeService) SheetNames(_ context.Context, _ string) ([]string, error) {
	s.calls = append(s.calls, "names")
	var names []string
	for n := range s.sheets {
		names = append(names, n)
	}
	return names, nil
}

func (s *fakeService) CreateSheet(_ context.Context, _, sheetName string) error {
	s.calls = append(s.calls, "create "+sheetName)
	if s.failCreate != nil {
		return s.failCreate
	}
	s.sheets[sheetName] = true
	return nil
}

func (s *fakeService) DeleteSheet(_ context.Context, _, sheetName string) error {
	s.calls = append(s.calls, "delete "+sheetName)
	if !s.sheets[sheetName] {
		return fmt.Errorf("no such sheet %q", sheetName)
	}
	if len(s.sheets) == 1 {
		return errors.New("cannot delete the only sheet")
	}
	delete(s.sheets, sheetName)
	return nil
}

func (s *fakeService) SheetSize(_ context.Context, _, _ string) (int, int, error) {
	s.calls = append(s.calls, "size")
	return s.cols, s.rows, nil
}

func (s *fakeService) Resize(_ context.Context, _, _ string, addColumns, addRows int) error {
	s.calls = append(s.calls, fmt.Sprintf("resize +%dc +%dr", addColumns, addRows))
	s.cols += addColumns
	s.rows += addRows
	return nil
}

func (s *fakeService) WriteRange(_ context.Context, _, rangeRef string, values [][]any) error {
	s.calls = append(s.calls, "write "+rangeRef)
	s.writes[rangeRef] = values
	return nil
}

func testPlacer(svc Service) *Placer {
	return &Placer{Svc: svc, Pause: -1, ChunkRows: 2}
}

func sampleTable(rows int) query.Table {
	t := query.Table{Header: []string{"id", "city"}}
	for i := 0; i < rows; i++ {
		t.Rows = append(t.Rows, []any{i + 1, fmt.Sprintf("city-%d", i+1)})
	}
	return t
}

func TestPlacer_Replace(t *testing.T) {
	t.Parallel()

	t.Run("recreates an existing sheet among others", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Data", "Other")
		err := testPlacer(svc).Replace(context.Background(), "sp", "Data", sampleTable(1))
		require.NoError(t, err)

		assert.Equal(t, []string{
			"names",
			"delete Data",
			"create Data",
			"write Data!A1:C3",
		}, svc.calls)
		assert.True(t, svc.sheets["Data"])
	})

	t.Run("covers the gap when the target is the only sheet", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Data")
		err := testPlacer(svc).Replace(context.Background(), "sp", "Data", sampleTable(1))
		require.NoError(t, err)

		assert.Equal(t, []string{
			"names",
			"create __temp__",
			"delete Data",
			"delete __temp__",
			"create Data",
			"write Data!A1:C3",
		}, svc.calls)
		assert.True(t, svc.sheets["Data"])
		assert.False(t, svc.sheets["__temp__"])
	})

	t.Run("creates a missing sheet without deleting anything", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Other")
		err := testPlacer(svc).Replace(context.Background(), "sp", "Data", sampleTable(1))
		require.NoError(t, err)

		assert.Equal(t, []string{
			"names",
			"create Data",
			"write Data!A1:C3",
		}, svc.calls)
	})

	t.Run("writes header first from A1", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Other")
		table := sampleTable(2)
		require.NoError(t, testPlacer(svc).Replace(context.Background(), "sp", "Data", table))

		written := svc.writes["Data!A1:C4"]
		require.Len(t, written, 3)
		assert.Equal(t, []any{"id", "city"}, written[0])
		assert.Equal(t, []any{1, "city-1"}, written[1])
	})

	t.Run("empty table is rejected", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Data")
		err := testPlacer(svc).Replace(context.Background(), "sp", "Data", query.Table{})
		assert.ErrorIs(t, err, ErrEmptyTable)
		assert.Empty(t, svc.calls)
	})

	t.Run("service error propagates", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Other")
		boom := errors.New("quota exceeded")
		svc.failCreate = boom
		err := testPlacer(svc).Replace(context.Background(), "sp", "Data", sampleTable(1))
		assert.ErrorIs(t, err, boom)
	})
}

func TestPlacer_PlaceChunks(t *testing.T) {
	t.Parallel()

	t.Run("writes in chunks advancing the start row", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Data")
		err := testPlacer(svc).PlaceChunks(context.Background(), "sp", "Data", sampleTable(4))
		require.NoError(t, err)

		// 5 value rows (header + 4), chunked by 2.
		assert.Equal(t, []string{
			"size",
			"write Data!A1:C3",
			"write Data!A3:C5",
			"write Data!A5:C6",
		}, svc.calls)
	})

	t.Run("grows the grid when the table is larger than the sheet", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Data")
		svc.cols = 2
		svc.rows = 3

		err := testPlacer(svc).PlaceChunks(context.Background(), "sp", "Data", sampleTable(4))
		require.NoError(t, err)
		assert.Equal(t, "resize +1c +3r", svc.calls[1])
	})

	t.Run("no resize when the table fits", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Data")
		require.NoError(t, testPlacer(svc).PlaceChunks(context.Background(), "sp", "Data", sampleTable(1)))
		for _, call := range svc.calls {
			assert.NotContains(t, call, "resize")
		}
	})

	t.Run("empty table is rejected", func(t *testing.T) {
		t.Parallel()

		svc := newFakeService("Data")
		err := testPlacer(svc).PlaceChunks(context.Background(), "sp", "Data", query.Table{})
		assert.ErrorIs(t, err, ErrEmptyTable)
	})
}
