// Package sheets places query result tables into a remote spreadsheet
// service. The service itself — ranges, sheet lifecycle, rate limits — sits
// behind the Service interface; this package owns the placement logic and
// the A1-notation arithmetic it needs.
package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnLetter converts a 1-based column index into its letter form
// (3 -> "C", 28 -> "AB").
func ColumnLetter(col int) string {
	var letters []byte
	for col > 0 {
		rem := col % 26
		col /= 26
		if rem == 0 {
			rem = 26
			col--
		}
		letters = append(letters, byte('A'+rem-1))
	}
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return string(letters)
}

// ColumnIndex converts column letters into their 1-based index
// ("AB" -> 28).
func ColumnIndex(column string) int {
	result := 0
	for _, c := range strings.ToUpper(column) {
		result = result*26 + int(c-'A'+1)
	}
	return result
}

// SplitCoordinate splits a cell reference into column letters and row
// number ("A12" -> "A", 12). A missing row number yields row 0.
func SplitCoordinate(cell string) (string, int) {
	i := 0
	for i < len(cell) && isLetter(cell[i]) {
		i++
	}
	row, _ := strconv.Atoi(cell[i:])
	return cell[:i], row
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// TranslateCell offsets a cell reference by the given row and column
// deltas ("A1" + 3 rows + 2 cols -> "C4").
func TranslateCell(cell string, rowDelta, colDelta int) string {
	letters, row := SplitCoordinate(cell)
	col := ColumnIndex(letters)
	return ColumnLetter(col+colDelta) + strconv.Itoa(row+rowDelta)
}

// RangeRef builds a service range reference, quoting the sheet name when
// it contains spaces.
func RangeRef(sheetName, startCell, endCell string) string {
	name := sheetName
	if strings.Contains(name, " ") && !strings.HasPrefix(name, "'") {
		name = "'" + name + "'"
	}
	return fmt.Sprintf("%s!%s:%s", name, startCell, endCell)
}

// SpreadsheetIDFromLink extracts the spreadsheet id when the caller pasted
// a full service URL instead of the bare id.
func SpreadsheetIDFromLink(spreadsheetID string) string {
	if idx := strings.LastIndex(spreadsheetID, "/d/"); idx >= 0 {
		rest := spreadsheetID[idx+len("/d/"):]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			return rest[:slash]
		}
		return rest
	}
	return spreadsheetID
}
