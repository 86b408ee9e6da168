package planimport

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetReader reads .xlsx workbooks. Cells are taken as formatted text so
// notations like 4×8-12 survive as typed.
type SpreadsheetReader struct{}

func (SpreadsheetReader) ReadGrids(data []byte) ([]GridSource, error) {
	if err := CheckFileSize(int64(len(data)), fileLabel); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{
		UnzipSizeLimit:    16 * MaxFileSizeBytes,
		UnzipXMLSizeLimit: 4 * MaxFileSizeBytes,
	})
	if err != nil {
		return nil, &ImportError{Code: CodeUnreadableWorkbook}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ImportError{Code: CodeNoSheets}
	}
	if len(sheets) > MaxSheets {
		return nil, &ImportError{Code: CodeTooManySheets, Count: len(sheets), Limit: MaxSheets}
	}

	sources := make([]GridSource, 0, len(sheets))
	for _, name := range sheets {
		label := fmt.Sprintf("Лист %q", name)
		raw, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}

		var rows Grid
		for i, cells := range raw {
			if blankRow(cells) {
				continue
			}
			rows = append(rows, Row{Line: i + 1, Cells: cells})
		}
		if len(rows) == 0 {
			continue
		}
		if len(rows) > MaxRowsPerSheet {
			return nil, &ImportError{Code: CodeTooManyRows, Source: label, Count: len(rows), Limit: MaxRowsPerSheet}
		}
		if err := checkColumns(label, rows); err != nil {
			return nil, err
		}
		sources = append(sources, GridSource{Label: label, Rows: rows, SkipIfUnheaded: true})
	}
	return sources, nil
}
