package sheets

import (
	"fmt"
	"strings"
)

// ColumnLetter converts a 1-based column number to its A1 letter form
// (1 -> A, 26 -> Z, 27 -> AA). Values below 1 yield an empty string.
func ColumnLetter(n int) string {
	var letters []byte
	for n > 0 {
		n--
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n /= 26
	}
	return string(letters)
}

// quoteTitle wraps a tab title in single quotes for A1 notation, doubling any
// embedded quote characters.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// rowRange builds the A1 range covering the first width cells of rowNum.
func rowRange(title string, rowNum, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s!A%d:%s%d", quoteTitle(title), rowNum, ColumnLetter(width), rowNum)
}
