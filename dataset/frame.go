// Package dataset holds the column-ordered in-memory table the pipeline reads
// train.csv and test.csv into.
//
// A Frame is deliberately small: typed columns in file order, the handful of
// selection operations the pipeline needs, and the summaries printed while
// inspecting the data. Columns are immutable once built; every operation that
// changes the shape returns a new Frame sharing untouched column data.
package dataset

import (
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Numeric columns hold float64 values; empty cells are NaN.
	Numeric Kind = iota
	// Categorical columns hold raw strings (pandas "object").
	Categorical
)

// String returns the pandas dtype name for the kind.
func (k Kind) String() string {
	if k == Numeric {
		return "float64"
	}
	return "object"
}

// Column is a named, typed column. Exactly one of Num and Str is populated,
// according to Kind. Raw keeps the cell text of a numeric column read from a
// file; it is nil for columns built in code.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Str  []string
	Raw  []string
}

// NewNumericColumn builds a numeric column.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Num: values}
}

// NewCategoricalColumn builds a categorical column.
func NewCategoricalColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: Categorical, Str: values}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Num)
	}
	return len(c.Str)
}

// String returns the i-th value as it appeared in the CSV file, or formatted
// as it would appear there for columns built in code.
func (c *Column) String(i int) string {
	if c.Kind == Numeric {
		if c.Raw != nil {
			return c.Raw[i]
		}
		return strconv.FormatFloat(c.Num[i], 'f', -1, 64)
	}
	return c.Str[i]
}

// Level returns the i-th value as a level name. Numbers use their shortest
// decimal form so "1" and "1.0" are the same level; NaN is "".
func (c *Column) Level(i int) string {
	if c.Kind == Categorical {
		return c.Str[i]
	}
	if math.IsNaN(c.Num[i]) {
		return ""
	}
	return strconv.FormatFloat(c.Num[i], 'f', -1, 64)
}

// Levels returns the distinct values of the column. Categorical levels sort
// as strings, numeric levels by value with NaN left out.
func (c *Column) Levels() []string {
	if c.Kind == Numeric {
		seen := make(map[float64]struct{})
		var values []float64
		for _, v := range c.Num {
			if _, ok := seen[v]; ok || math.IsNaN(v) {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		sort.Float64s(values)
		levels := make([]string, len(values))
		for i, v := range values {
			levels[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		return levels
	}

	seen := make(map[string]struct{})
	for _, v := range c.Str {
		seen[v] = struct{}{}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels
}

// Frame is an ordered collection of equally long columns.
type Frame struct {
	columns []*Column
	index   map[string]int
	nRows   int
}

// NewFrame builds a frame from columns. Names must be unique and all columns
// must have the same length.
func NewFrame(columns ...*Column) (*Frame, error) {
	f := &Frame{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := f.index[c.Name]; dup {
			return nil, errors.NewValueError("NewFrame", "duplicate column name "+strconv.Quote(c.Name))
		}
		if i == 0 {
			f.nRows = c.Len()
		} else if c.Len() != f.nRows {
			return nil, errors.NewDimensionError("NewFrame", f.nRows, c.Len(), 0)
		}
		f.index[c.Name] = i
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// NRows returns the number of rows.
func (f *Frame) NRows() int { return f.nRows }

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.columns) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; the columns are shared.
func (f *Frame) Columns() []*Column {
	return append([]*Column(nil), f.columns...)
}

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownColumn, "column %q", name)
	}
	return f.columns[i], nil
}

// Drop returns a frame without the named columns. Unknown names are an error,
// matching pandas' default errors="raise".
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		if !f.Has(n) {
			return nil, errors.Wrapf(errors.ErrUnknownColumn, "Drop: column %q", n)
		}
		drop[n] = struct{}{}
	}
	kept := make([]*Column, 0, len(f.columns)-len(drop))
	for _, c := range f.columns {
		if _, ok := drop[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	return f.rebuilt(kept), nil
}

// WithColumn returns a frame where the column of the same name is replaced by
// c, or c is appended when no such column exists.
func (f *Frame) WithColumn(c *Column) (*Frame, error) {
	if c.Len() != f.nRows && len(f.columns) > 0 {
		return nil, errors.NewDimensionError("WithColumn", f.nRows, c.Len(), 0)
	}
	cols := f.Columns()
	if i, ok := f.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	out := f.rebuilt(cols)
	out.nRows = c.Len()
	return out, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	cols := make([]*Column, len(f.columns))
	for i, c := range f.columns {
		cp := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			cp.Num = append([]float64(nil), c.Num...)
			if c.Raw != nil {
				cp.Raw = append([]string(nil), c.Raw...)
			}
		} else {
			cp.Str = append([]string(nil), c.Str...)
		}
		cols[i] = cp
	}
	return f.rebuilt(cols)
}

// Levels returns the distinct values of the named column, see Column.Levels.
func (f *Frame) Levels(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return c.Levels(), nil
}

// CategoricalNames returns the categorical columns in frame order, skipping
// the excluded names (typically the label).
func (f *Frame) CategoricalNames(exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, n := range exclude {
		skip[n] = struct{}{}
	}
	var names []string
	for _, c := range f.columns {
		if _, ok := skip[c.Name]; ok || c.Kind != Categorical {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

func (f *Frame) rebuilt(cols []*Column) *Frame {
	out := &Frame{columns: cols, index: make(map[string]int, len(cols)), nRows: f.nRows}
	for i, c := range cols {
		out.index[c.Name] = i
	}
	return out
}
