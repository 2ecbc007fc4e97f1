// Package frame holds tabular query results: ordered columns plus rows of
// values as returned by the database drivers. It is deliberately small —
// just enough structure for step results, stratified sampling, and output
// rendering.
package frame

import (
	"fmt"
	"strconv"

	"github.com/strata-analytics/strata/core/shared/errors"
)

// Frame is a tabular result set: column names plus rows of values.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// New creates an empty frame with the given column names.
func New(columns []string) *Frame {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{Columns: cols}
}

// NumRows returns the number of rows in the frame.
func (f *Frame) NumRows() int {
	return len(f.Rows)
}

// NumCols returns the number of columns in the frame.
func (f *Frame) NumCols() int {
	return len(f.Columns)
}

// ColumnIndex returns the position of the named column.
func (f *Frame) ColumnIndex(name string) (int, bool) {
	for i, col := range f.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.ColumnIndex(name)
	return ok
}

// AppendRow adds a row to the frame. The row must match the column count.
func (f *Frame) AppendRow(row []any) error {
	if len(row) != len(f.Columns) {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"row has %d values, frame has %d columns", len(row), len(f.Columns))
	}
	f.Rows = append(f.Rows, row)
	return nil
}

// Column returns all values of the named column in row order.
func (f *Frame) Column(name string) ([]any, error) {
	idx, ok := f.ColumnIndex(name)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "column '%s' not found", name)
	}
	values := make([]any, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// AppendColumn adds a new column with one value per existing row.
func (f *Frame) AppendColumn(name string, values []any) error {
	if f.HasColumn(name) {
		return errors.Newf(errors.ErrCodeInvalidInput, "column '%s' already exists", name)
	}
	if len(values) != len(f.Rows) {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"column '%s' has %d values, frame has %d rows", name, len(values), len(f.Rows))
	}
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], values[i])
	}
	return nil
}

// DropColumns returns a copy of the frame without the named columns.
// Unknown names are ignored.
func (f *Frame) DropColumns(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}

	keep := make([]int, 0, len(f.Columns))
	for i, col := range f.Columns {
		if !drop[col] {
			keep = append(keep, i)
		}
	}

	out := &Frame{Columns: make([]string, len(keep))}
	for i, idx := range keep {
		out.Columns[i] = f.Columns[idx]
	}
	out.Rows = make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		newRow := make([]any, len(keep))
		for i, idx := range keep {
			newRow[i] = row[idx]
		}
		out.Rows[r] = newRow
	}
	return out
}

// Clone returns a deep copy of the frame's structure. Cell values are
// copied by assignment; drivers hand us scalars so this is sufficient.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := &Frame{
		Columns: make([]string, len(f.Columns)),
		Rows:    make([][]any, len(f.Rows)),
	}
	copy(out.Columns, f.Columns)
	for i, row := range f.Rows {
		newRow := make([]any, len(row))
		copy(newRow, row)
		out.Rows[i] = newRow
	}
	return out
}

// Float64s returns the named column coerced to float64. Integers, floats
// and numeric strings are accepted; anything else fails.
func (f *Frame) Float64s(name string) ([]float64, error) {
	values, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		fv, ok := toFloat64(v)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidInput,
				"column '%s' is not numeric: row %d holds %T", name, i, v)
		}
		out[i] = fv
	}
	return out, nil
}

// IsNumeric reports whether every value in the named column coerces to
// float64. Columns with no rows are not considered numeric.
func (f *Frame) IsNumeric(name string) bool {
	values, err := f.Column(name)
	if err != nil || len(values) == 0 {
		return false
	}
	for _, v := range values {
		if _, ok := toFloat64(v); !ok {
			return false
		}
	}
	return true
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		fv, err := strconv.ParseFloat(val, 64)
		return fv, err == nil
	case []byte:
		fv, err := strconv.ParseFloat(string(val), 64)
		return fv, err == nil
	default:
		return 0, false
	}
}

// CellString renders a single cell for display and CSV output.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}
