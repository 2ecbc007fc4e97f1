package sampling_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-analytics/strata/core/frame"
	"github.com/strata-analytics/strata/core/sampling"
	apperrors "github.com/strata-analytics/strata/core/shared/errors"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestProportionalStratifiedSamplePartition(t *testing.T) {
	f := sampling.GenerateDummyData(300, seeded(7))

	out, err := sampling.ProportionalStratifiedSample(f, []string{"city", "sex"}, sampling.Plan{
		Splits: 3,
		Rand:   seeded(7),
	})
	require.NoError(t, err)

	// The input frame is untouched.
	assert.False(t, f.HasColumn("group"))

	require.True(t, out.HasColumn("group"))
	assert.Equal(t, f.NumRows(), out.NumRows())

	counts := map[int]int{}
	col, err := out.Column("group")
	require.NoError(t, err)
	for _, v := range col {
		g, ok := v.(int)
		require.True(t, ok, "group cell should be an int, got %T", v)
		assert.GreaterOrEqual(t, g, 0)
		assert.Less(t, g, 3)
		counts[g]++
	}

	// Every group exists and sizes are near-equal overall.
	require.Len(t, counts, 3)
	for g, n := range counts {
		assert.InDelta(t, f.NumRows()/3, n, 10, "group %d size", g)
	}
}

func TestProportionalStratifiedSampleBalancedWithinStrata(t *testing.T) {
	f := frame.New([]string{"city"})
	for i := 0; i < 40; i++ {
		require.NoError(t, f.AppendRow([]any{"Tbilisi"}))
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, f.AppendRow([]any{"Batumi"}))
	}

	out, err := sampling.ProportionalStratifiedSample(f, []string{"city"}, sampling.Plan{
		Splits: 2,
		Rand:   seeded(11),
	})
	require.NoError(t, err)

	city, err := out.Column("city")
	require.NoError(t, err)
	group, err := out.Column("group")
	require.NoError(t, err)

	perStratum := map[string]map[int]int{}
	for i := range city {
		key := city[i].(string)
		if perStratum[key] == nil {
			perStratum[key] = map[int]int{}
		}
		perStratum[key][group[i].(int)]++
	}

	assert.Equal(t, 20, perStratum["Tbilisi"][0])
	assert.Equal(t, 20, perStratum["Tbilisi"][1])
	assert.Equal(t, 10, perStratum["Batumi"][0])
	assert.Equal(t, 10, perStratum["Batumi"][1])
}

func TestProportionalStratifiedSampleNumericBucketing(t *testing.T) {
	f := sampling.GenerateDummyData(500, seeded(3))

	out, err := sampling.ProportionalStratifiedSample(f,
		[]string{"data_consumption_stratified"},
		sampling.Plan{Splits: 3, NumericBuckets: 5, Rand: seeded(3)})
	require.NoError(t, err)
	assert.Equal(t, 500, out.NumRows())
	assert.True(t, out.HasColumn("group"))
}

func TestProportionalStratifiedSampleDeterministic(t *testing.T) {
	f := sampling.GenerateDummyData(120, seeded(42))

	// Multiple stratify columns produce many strata; identical seeds must
	// replay the identical assignment every time regardless of map order.
	first, err := sampling.ProportionalStratifiedSample(f, []string{"city", "sex"}, sampling.Plan{Rand: seeded(42)})
	require.NoError(t, err)
	want, err := first.Column("group")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := sampling.ProportionalStratifiedSample(f, []string{"city", "sex"}, sampling.Plan{Rand: seeded(42)})
		require.NoError(t, err)
		got, err := again.Column("group")
		require.NoError(t, err)
		require.Equal(t, want, got, "same seed must give the same assignment (attempt %d)", i)
	}
}

func TestProportionalStratifiedSampleErrors(t *testing.T) {
	t.Run("stratum too small", func(t *testing.T) {
		f := frame.New([]string{"city"})
		require.NoError(t, f.AppendRow([]any{"Tbilisi"}))
		require.NoError(t, f.AppendRow([]any{"Tbilisi"}))
		require.NoError(t, f.AppendRow([]any{"Batumi"}))

		_, err := sampling.ProportionalStratifiedSample(f, []string{"city"}, sampling.Plan{Splits: 2})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
		assert.Contains(t, err.Error(), "too few rows")
	})

	t.Run("group column already present", func(t *testing.T) {
		f := frame.New([]string{"city", "group"})
		require.NoError(t, f.AppendRow([]any{"Tbilisi", 0}))

		_, err := sampling.ProportionalStratifiedSample(f, []string{"city"}, sampling.Plan{})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("unknown stratify column", func(t *testing.T) {
		f := frame.New([]string{"city"})
		require.NoError(t, f.AppendRow([]any{"Tbilisi"}))

		_, err := sampling.ProportionalStratifiedSample(f, []string{"region"}, sampling.Plan{})
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("no stratify columns", func(t *testing.T) {
		f := frame.New([]string{"city"})
		_, err := sampling.ProportionalStratifiedSample(f, nil, sampling.Plan{})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
	})
}

func TestGenerateDummyData(t *testing.T) {
	f := sampling.GenerateDummyData(50, seeded(1))

	assert.Equal(t, 50, f.NumRows())
	for _, col := range []string{"age", "city", "sex", "arpu", "data_consumption", "data_consumption_stratified"} {
		assert.True(t, f.HasColumn(col), col)
	}

	ages, err := f.Float64s("age")
	require.NoError(t, err)
	for _, a := range ages {
		assert.GreaterOrEqual(t, a, 18.0)
		assert.Less(t, a, 65.0)
	}
}
