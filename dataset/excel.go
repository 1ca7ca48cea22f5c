package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

// ExcelOptions configures ReadExcel. The first non-skipped row is the header.
type ExcelOptions struct {
	Sheet       string // Sheet name; empty selects the first sheet
	SkipRows    int
	NATokens    []string
	Categorical []string
}

// ReadExcel reads one sheet of an xlsx workbook.
func ReadExcel(r io.Reader, opts *ExcelOptions) (f *Frame, err error) {
	if opts == nil {
		opts = &ExcelOptions{}
	}

	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		err = multierr.Append(err, book.Close())
	}()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoData
		}
		sheet = sheets[0]
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) <= opts.SkipRows {
		return nil, ErrNoData
	}
	rows = rows[opts.SkipRows:]

	names := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		names[i] = strings.TrimSpace(h)
	}

	// Trailing empty cells are dropped by the reader.
	var data [][]string
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if len(row) < len(names) {
			row = append(row, make([]string, len(names)-len(row))...)
		}
		data = append(data, row)
	}
	return build(names, data, opts.NATokens, opts.Categorical)
}
