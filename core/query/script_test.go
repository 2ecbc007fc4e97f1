package query_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-analytics/strata/core/query"
	apperrors "github.com/strata-analytics/strata/core/shared/errors"
)

const sampleScript = `-- SUB_QUERY population
-- BASE_QUERY
WITH base AS (SELECT id FROM customers)
-- QUERY_STEP count
SELECT COUNT(*) FROM base
-- QUERY_STEP detail
SELECT * FROM base
-- SUB_QUERY arpu
SELECT AVG(arpu) FROM customers
`

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantGroups int
		wantSteps  []int // steps per group
	}{
		{
			name:       "two groups with cumulative steps",
			text:       sampleScript,
			wantGroups: 2,
			wantSteps:  []int{3, 1},
		},
		{
			name:       "no group markers is a single group",
			text:       "SELECT 1 FROM dual\n",
			wantGroups: 1,
			wantSteps:  []int{1},
		},
		{
			name:       "steps without group markers",
			text:       "-- BASE_QUERY\nWITH b AS (SELECT 1)\n-- QUERY_STEP\nSELECT * FROM b\n",
			wantGroups: 1,
			wantSteps:  []int{2},
		},
		{
			name:       "text before the first group marker is dropped",
			text:       "-- preamble comment\n-- SUB_QUERY only\nSELECT 1\n",
			wantGroups: 1,
			wantSteps:  []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := query.ParseSteps(tt.text)
			require.Len(t, groups, tt.wantGroups)
			for i, group := range groups {
				assert.Len(t, group, tt.wantSteps[i])
			}
		})
	}
}

func TestParseStepsCumulativePrefix(t *testing.T) {
	groups := query.ParseSteps(sampleScript)
	require.Len(t, groups, 2)
	steps := groups[0]
	require.Len(t, steps, 3)

	// Every step repeats the base prefix and all previous step bodies.
	assert.True(t, strings.HasPrefix(steps[0], "-- BASE_QUERY"))
	assert.True(t, strings.HasPrefix(steps[1], steps[0]))
	assert.True(t, strings.HasPrefix(steps[2], steps[1]))
	assert.Contains(t, steps[2], "SELECT * FROM base")
	assert.NotContains(t, steps[0], "QUERY_STEP")
}

func TestLoad(t *testing.T) {
	t.Run("literal source", func(t *testing.T) {
		script, err := query.Load(query.Source{Text: sampleScript}, true)
		require.NoError(t, err)
		assert.Equal(t, 4, script.NumSteps())
	})

	t.Run("whole script without steps", func(t *testing.T) {
		script, err := query.Load(query.Source{Text: sampleScript}, false)
		require.NoError(t, err)
		require.Equal(t, 1, script.NumSteps())
		assert.Equal(t, sampleScript, script.Steps()[0])
	})

	t.Run("neither file nor source", func(t *testing.T) {
		_, err := query.Load(query.Source{}, true)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := query.Load(query.Source{File: "does/not/exist.sql"}, true)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("file backed script reloads edits", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "extract.sql")
		require.NoError(t, os.WriteFile(path, []byte("SELECT 1\n"), 0o644))

		script, err := query.Load(query.Source{File: path}, true)
		require.NoError(t, err)
		require.Equal(t, []string{"SELECT 1\n"}, script.Steps())

		require.NoError(t, os.WriteFile(path, []byte("SELECT 2\n"), 0o644))
		require.NoError(t, script.Reload())
		assert.Equal(t, []string{"SELECT 2\n"}, script.Steps())
	})
}

func TestParseStepsIdempotent(t *testing.T) {
	first := query.ParseSteps(sampleScript)
	second := query.ParseSteps(sampleScript)
	assert.Equal(t, first, second)
}
