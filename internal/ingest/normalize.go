package ingest

// normalizeRow fits row to the reference header and returns the
// (possibly updated) header together with the normalized row.
//
// A row shorter than the header is padded with Null up to the header
// length. A row longer than the header triggers the header-capture quirk
// carried over from the system this replaces: the header's values are
// replaced by the row's leading cells (rendered as text) and the header
// keeps its length; the row itself is truncated to that length. The new
// header stays in effect for the remainder of the source. The output row
// length always equals the returned header's length.
func normalizeRow(header []string, row []Value) ([]string, []Value) {
	h := len(header)
	switch {
	case len(row) < h:
		padded := make([]Value, h)
		copy(padded, row)
		for i := len(row); i < h; i++ {
			padded[i] = Null()
		}
		return header, padded
	case len(row) > h:
		captured := make([]string, h)
		for i := range captured {
			captured[i] = row[i].render()
		}
		return captured, row[:h]
	default:
		return header, row
	}
}
