package planimport

import "strings"

// Row is one non-blank row of cell text together with its 1-based line
// number in the source.
type Row struct {
	Line  int
	Cells []string
}

// Grid is a header-less table of raw cell text.
type Grid []Row

// GridSource is one table to scan: a worksheet or the whole CSV file.
type GridSource struct {
	Label string
	Rows  Grid
	// SkipIfUnheaded makes a source without a header row contribute nothing
	// instead of failing the import.
	SkipIfUnheaded bool
}

// GridReader turns raw file bytes into grids for the row scanner.
type GridReader interface {
	ReadGrids(data []byte) ([]GridSource, error)
}

// ReaderFor returns the reader for an import format.
func ReaderFor(kind FileKind) (GridReader, error) {
	switch kind {
	case KindXLSX:
		return SpreadsheetReader{}, nil
	case KindCSV:
		return DelimitedReader{}, nil
	default:
		return nil, &ImportError{Code: CodeUnsupportedFormat}
	}
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// checkColumns enforces MaxColumnsPerRow on every row of a source.
func checkColumns(label string, rows Grid) error {
	for _, r := range rows {
		if len(r.Cells) > MaxColumnsPerRow {
			return &ImportError{Code: CodeTooManyColumns, Source: label, Count: len(r.Cells), Limit: MaxColumnsPerRow}
		}
	}
	return nil
}
