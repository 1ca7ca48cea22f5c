package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// ErrNoData is returned when a source holds no data rows.
var ErrNoData = errors.New("no data rows found")

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	HasHeader   bool     // First row holds column names
	Delimiter   rune     // Field delimiter (default: ',')
	SkipRows    int      // Rows to skip before the header
	NATokens    []string // Cells read as missing
	Names       []string // Column names when there is no header
	Categorical []string // Columns kept as strings even if they parse as numbers
}

// DefaultNATokens are the cells read as missing unless overridden.
var DefaultNATokens = []string{"", "NA", "NaN", "nan", "null", "."}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		HasHeader: true,
		Delimiter: ',',
		NATokens:  DefaultNATokens,
	}
}

// LoadCSV loads a frame from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (f *Frame, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	return ReadCSV(file, opts)
}

// ReadCSV reads a frame from r. Every column whose non-missing cells all
// parse as numbers becomes Numeric, the rest Categorical.
func ReadCSV(r io.Reader, opts *CSVOptions) (*Frame, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("skipping row %d: %w", i+1, err)
		}
	}

	names := opts.Names
	if opts.HasHeader {
		header, err := reader.Read()
		if err == io.EOF {
			return nil, ErrNoData
		}
		if err != nil {
			return nil, err
		}
		names = make([]string, len(header))
		for i, h := range header {
			names[i] = strings.TrimSpace(strings.Trim(h, "\""))
		}
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return build(names, rows, opts.NATokens, opts.Categorical)
}

// build assembles a frame from string cells. Without names the columns are
// called V1, V2 and so on.
func build(names []string, rows [][]string, naTokens, categorical []string) (*Frame, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if naTokens == nil {
		naTokens = DefaultNATokens
	}
	if names == nil {
		names = make([]string, len(rows[0]))
		for i := range names {
			names[i] = "V" + strconv.Itoa(i+1)
		}
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d: %d fields, want %d", i+1, len(row), len(names))
		}
	}

	na := make(map[string]bool, len(naTokens))
	for _, tok := range naTokens {
		na[tok] = true
	}
	forced := make(map[string]bool, len(categorical))
	for _, c := range categorical {
		forced[c] = true
	}

	f := NewFrame()
	for j, name := range names {
		cells := make([]string, len(rows))
		for i, row := range rows {
			cells[i] = strings.TrimSpace(strings.Trim(row[j], "\""))
		}

		var err error
		if values, ok := parseNumeric(cells, na); ok && !forced[name] {
			err = f.AddNumeric(name, values)
		} else {
			for i, c := range cells {
				if na[c] {
					cells[i] = ""
				}
			}
			err = f.AddCategorical(name, cells)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseNumeric(cells []string, na map[string]bool) ([]float64, bool) {
	values := make([]float64, len(cells))
	for i, c := range cells {
		if na[c] {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// WriteCSV writes the frame with a header row. Missing numeric cells are
// written as NA.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Names()); err != nil {
		return err
	}

	record := make([]string, f.NCols())
	for i := 0; i < f.NRows(); i++ {
		for j, c := range f.columns {
			record[j] = c.cell(i)
			if c.Kind == Numeric && record[j] == "" {
				record[j] = "NA"
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the frame to a file.
func SaveCSV(f *Frame, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	return WriteCSV(file, f)
}
