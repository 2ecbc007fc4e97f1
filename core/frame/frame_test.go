package frame_test

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-analytics/strata/core/frame"
	apperrors "github.com/strata-analytics/strata/core/shared/errors"
)

func customerFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New([]string{"city", "arpu", "active"})
	require.NoError(t, f.AppendRow([]any{"Tbilisi", 210.5, true}))
	require.NoError(t, f.AppendRow([]any{"Batumi", 180.0, false}))
	require.NoError(t, f.AppendRow([]any{"Kutaisi", int64(195), true}))
	return f
}

func TestAppendRowMismatch(t *testing.T) {
	f := frame.New([]string{"a", "b"})
	err := f.AppendRow([]any{1})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestColumnAccess(t *testing.T) {
	f := customerFrame(t)

	cities, err := f.Column("city")
	require.NoError(t, err)
	assert.Equal(t, []any{"Tbilisi", "Batumi", "Kutaisi"}, cities)

	_, err = f.Column("region")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	idx, ok := f.ColumnIndex("arpu")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestFloat64sCoercion(t *testing.T) {
	f := frame.New([]string{"v"})
	require.NoError(t, f.AppendRow([]any{int32(7)}))
	require.NoError(t, f.AppendRow([]any{"12.5"}))
	require.NoError(t, f.AppendRow([]any{[]byte("3")}))
	require.NoError(t, f.AppendRow([]any{uint16(2)}))

	got, err := f.Float64s("v")
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 12.5, 3, 2}, got)
	assert.True(t, f.IsNumeric("v"))

	require.NoError(t, f.AppendRow([]any{"Tbilisi"}))
	_, err = f.Float64s("v")
	require.Error(t, err)
	assert.False(t, f.IsNumeric("v"))
}

func TestIsNumericEmptyColumn(t *testing.T) {
	f := frame.New([]string{"v"})
	assert.False(t, f.IsNumeric("v"))
}

func TestAppendColumn(t *testing.T) {
	f := customerFrame(t)

	require.NoError(t, f.AppendColumn("group", []any{0, 1, 2}))
	assert.Equal(t, 4, f.NumCols())
	assert.Equal(t, []any{"Kutaisi", int64(195), true, 2}, f.Rows[2])

	err := f.AppendColumn("group", []any{0, 0, 0})
	require.Error(t, err, "duplicate column name")

	err = f.AppendColumn("short", []any{0})
	require.Error(t, err, "length mismatch")
}

func TestDropColumns(t *testing.T) {
	f := customerFrame(t)

	out := f.DropColumns("active", "missing")
	assert.Equal(t, []string{"city", "arpu"}, out.Columns)
	assert.Equal(t, []any{"Tbilisi", 210.5}, out.Rows[0])

	// Original untouched.
	assert.Equal(t, 3, f.NumCols())
}

func TestCloneIsIndependent(t *testing.T) {
	f := customerFrame(t)
	c := f.Clone()

	c.Rows[0][0] = "Rustavi"
	c.Columns[0] = "town"

	assert.Equal(t, "Tbilisi", f.Rows[0][0])
	assert.Equal(t, "city", f.Columns[0])
}

func TestRenderTable(t *testing.T) {
	f := customerFrame(t)

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf, frame.DefaultFormatOptions()))

	out := buf.String()
	assert.Contains(t, out, "city")
	assert.Contains(t, out, "Tbilisi")
	assert.Contains(t, out, "[3 rows x 3 columns]")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// header + separator + 3 rows + footer
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[1], "---"))
}

func TestRenderTruncation(t *testing.T) {
	f := frame.New([]string{"msisdn"})
	for i := 0; i < 10; i++ {
		require.NoError(t, f.AppendRow([]any{i}))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf, frame.FormatOptions{MaxRows: 4}))
	assert.Contains(t, buf.String(), "... 6 more row(s)")
	assert.Contains(t, buf.String(), "[10 rows x 1 columns]")
}

func TestRenderClipsOnRunes(t *testing.T) {
	f := frame.New([]string{"city"})
	require.NoError(t, f.AppendRow([]any{"თბილისი — საქართველოს დედაქალაქი"}))

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf, frame.FormatOptions{MaxColWidth: 10}))

	out := buf.String()
	assert.True(t, utf8.ValidString(out), "truncation must not split a multi-byte rune")
	assert.Contains(t, out, "თბილისი...")
}

func TestCSVRoundTrip(t *testing.T) {
	f := customerFrame(t)

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))

	back, err := frame.ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Columns, back.Columns)
	assert.Equal(t, 3, back.NumRows())
	// CSV cells come back as strings.
	assert.Equal(t, "210.5", back.Rows[0][1])

	arpu, err := back.Float64s("arpu")
	require.NoError(t, err)
	assert.Equal(t, []float64{210.5, 180, 195}, arpu)
}

func TestEncodeJSON(t *testing.T) {
	f := frame.New([]string{"city", "note"})
	require.NoError(t, f.AppendRow([]any{"Batumi", []byte("port")}))

	var buf bytes.Buffer
	require.NoError(t, f.EncodeJSON(&buf))
	assert.JSONEq(t, `[{"city":"Batumi","note":"port"}]`, buf.String())
}
