package planimport

import (
	"bytes"
	"regexp"
	"strings"
)

const csvLabel = "CSV"

var (
	utf8BOM   = []byte("\xef\xbb\xbf")
	lineBreak = regexp.MustCompile(`\r?\n`)
)

// DelimitedReader reads semicolon-separated UTF-8 text line by line. A quote
// toggles quoting until the end of its line, "" inside quotes is a literal
// quote and a quoted ; stays in the cell.
type DelimitedReader struct{}

func (DelimitedReader) ReadGrids(data []byte) ([]GridSource, error) {
	if err := CheckFileSize(int64(len(data)), fileLabel); err != nil {
		return nil, err
	}

	text := string(bytes.TrimPrefix(data, utf8BOM))
	var rows Grid
	lastLine := 0
	for i, line := range lineBreak.Split(text, -1) {
		cells := splitCSVLine(line)
		if blankRow(cells) {
			continue
		}
		lastLine = i + 1
		rows = append(rows, Row{Line: i + 1, Cells: cells})
	}

	if len(rows) == 0 {
		return nil, &ImportError{Code: CodeEmptyCSV}
	}
	// Blank lines before the last row count toward the limit, as they would in a spreadsheet.
	if lastLine > MaxRowsPerSheet {
		return nil, &ImportError{Code: CodeTooManyRows, Source: csvLabel, Count: lastLine, Limit: MaxRowsPerSheet}
	}
	if err := checkColumns(csvLabel, rows); err != nil {
		return nil, err
	}
	return []GridSource{{Label: csvLabel, Rows: rows}}, nil
}

// splitCSVLine splits one line on unquoted semicolons. Quote state never
// carries over to the next line.
func splitCSVLine(line string) []string {
	var cells []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ';' && !inQuotes:
			cells = append(cells, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(cells, cur.String())
}
