package frame

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FormatOptions controls text rendering of a frame. The original tooling
// relied on ambient display settings; here the caller passes them in.
type FormatOptions struct {
	// MaxColWidth truncates cell text beyond this width. 0 means no limit.
	MaxColWidth int
	// MaxRows limits how many rows are printed. 0 means all rows.
	MaxRows int
}

// DefaultFormatOptions are the options used by the CLI table output.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{MaxColWidth: 48, MaxRows: 0}
}

// Render writes the frame as an aligned text table.
func (f *Frame) Render(w io.Writer, opts FormatOptions) error {
	rows := f.Rows
	truncated := 0
	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		truncated = len(rows) - opts.MaxRows
		rows = rows[:opts.MaxRows]
	}

	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, f.Columns)
	for _, row := range rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = clip(CellString(v), opts.MaxColWidth)
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(f.Columns))
	for _, line := range cells {
		for i, cell := range line {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for lineNo, line := range cells {
		var b strings.Builder
		for i, cell := range line {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if pad := widths[i] - len(cell); pad > 0 && i < len(line)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
		if lineNo == 0 {
			var sep strings.Builder
			for i, width := range widths {
				if i > 0 {
					sep.WriteString("  ")
				}
				sep.WriteString(strings.Repeat("-", width))
			}
			if _, err := fmt.Fprintln(w, sep.String()); err != nil {
				return err
			}
		}
	}

	if truncated > 0 {
		if _, err := fmt.Fprintf(w, "... %d more row(s)\n", truncated); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "[%d rows x %d columns]\n", f.NumRows(), f.NumCols())
	return err
}

// WriteCSV writes the frame, header included, as CSV.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return err
	}
	record := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i, v := range row {
			record[i] = CellString(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeJSON writes the frame as a JSON array of column-keyed objects.
func (f *Frame) EncodeJSON(w io.Writer) error {
	out := make([]map[string]any, len(f.Rows))
	for i, row := range f.Rows {
		obj := make(map[string]any, len(f.Columns))
		for j, col := range f.Columns {
			if b, ok := row[j].([]byte); ok {
				obj[col] = string(b)
			} else {
				obj[col] = row[j]
			}
		}
		out[i] = obj
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// ReadCSV parses CSV content, header row first, into a frame. All cells
// come back as strings; numeric coercion happens lazily via Float64s.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return New(nil), nil
	}
	f := New(records[0])
	for _, record := range records[1:] {
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		if err := f.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// clip truncates cell text to max runes so multi-byte characters are never
// split mid-sequence.
func clip(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
