package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sartorproj/gostatespace/timeseries"
)

var (
	// ErrColumnNotFound is returned when a frame has no column with the requested name.
	ErrColumnNotFound = errors.New("column not found")
	// ErrDuplicateColumn is returned when adding a column whose name is taken.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrLengthMismatch is returned when a column length differs from the frame's.
	ErrLengthMismatch = errors.New("column length does not match frame")
	// ErrColumnKind is returned when a column is used as the wrong kind.
	ErrColumnKind = errors.New("column has the wrong kind")
)

// Kind is the type of a column.
type Kind int

const (
	// Numeric columns hold float64 values, NaN for missing.
	Numeric Kind = iota
	// Categorical columns hold string levels, "" for missing.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column is a named, typed column. Exactly one of Floats and Strings is set.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// Levels returns the sorted distinct non-empty values of a categorical column.
func (c *Column) Levels() []string {
	if c.Kind != Categorical {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, s := range c.Strings {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (c *Column) cell(i int) string {
	if c.Kind == Numeric {
		if math.IsNaN(c.Floats[i]) {
			return ""
		}
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
	}
	return c.Strings[i]
}

// Frame is an ordered set of equal-length named columns.
type Frame struct {
	columns []*Column
	index   map[string]int
	nrows   int
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{index: make(map[string]int)}
}

// NRows returns the number of rows.
func (f *Frame) NRows() int {
	return f.nrows
}

// NCols returns the number of columns.
func (f *Frame) NCols() int {
	return len(f.columns)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

func (f *Frame) add(c *Column) error {
	if _, ok := f.index[c.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
	}
	if len(f.columns) > 0 && c.Len() != f.nrows {
		return fmt.Errorf("%w: %q has %d rows, frame has %d", ErrLengthMismatch, c.Name, c.Len(), f.nrows)
	}
	f.index[c.Name] = len(f.columns)
	f.columns = append(f.columns, c)
	f.nrows = c.Len()
	return nil
}

// AddNumeric appends a numeric column. The values are copied.
func (f *Frame) AddNumeric(name string, values []float64) error {
	return f.add(&Column{Name: name, Kind: Numeric, Floats: append([]float64(nil), values...)})
}

// AddCategorical appends a categorical column. The values are copied.
func (f *Frame) AddCategorical(name string, values []string) error {
	return f.add(&Column{Name: name, Kind: Categorical, Strings: append([]string(nil), values...)})
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return f.columns[i], nil
}

// Numeric returns the values of a numeric column.
func (f *Frame) Numeric(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Numeric {
		return nil, fmt.Errorf("%w: %q is %s", ErrColumnKind, name, c.Kind)
	}
	return c.Floats, nil
}

// Categorical returns the values of a categorical column.
func (f *Frame) Categorical(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Categorical {
		return nil, fmt.Errorf("%w: %q is %s", ErrColumnKind, name, c.Kind)
	}
	return c.Strings, nil
}

// Filter returns a new frame with the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	var rows []int
	for i := 0; i < f.nrows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}

	out := NewFrame()
	for _, c := range f.columns {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		for _, r := range rows {
			if c.Kind == Numeric {
				nc.Floats = append(nc.Floats, c.Floats[r])
			} else {
				nc.Strings = append(nc.Strings, c.Strings[r])
			}
		}
		out.index[nc.Name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	out.nrows = len(rows)
	return out
}

// Where keeps the rows whose column value equals value. Numeric cells are
// compared in their shortest decimal form, missing cells as "".
func (f *Frame) Where(column, value string) (*Frame, error) {
	c, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	return f.Filter(func(row int) bool {
		return c.cell(row) == value
	}), nil
}

// dateLayouts are tried in order when parsing a categorical date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"2006-01",
	"2006",
}

// Series extracts a numeric column as a time series. dateColumn is optional:
// a numeric date column holds years, a categorical one is parsed as dates.
func (f *Frame) Series(valueColumn, dateColumn string) (*timeseries.Series, error) {
	values, err := f.Numeric(valueColumn)
	if err != nil {
		return nil, err
	}

	s := timeseries.New(append([]float64(nil), values...))
	s.Name = valueColumn
	if dateColumn == "" {
		return s, nil
	}

	dc, err := f.Column(dateColumn)
	if err != nil {
		return nil, err
	}
	ts := make([]time.Time, f.nrows)
	for i := range ts {
		if dc.Kind == Numeric {
			year := dc.Floats[i]
			if math.IsNaN(year) || year != math.Trunc(year) {
				return nil, fmt.Errorf("row %d: %v is not a year", i, year)
			}
			ts[i] = time.Date(int(year), time.January, 1, 0, 0, 0, 0, time.UTC)
			continue
		}
		t, err := parseDate(dc.Strings[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		ts[i] = t
	}

	out, err := timeseries.NewWithTimestamps(ts, s.Values)
	if err != nil {
		return nil, err
	}
	out.Name = valueColumn
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
