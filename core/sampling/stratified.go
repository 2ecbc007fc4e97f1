// Package sampling splits tabular samples into stratified experiment
// groups: strata are formed from the chosen columns (numeric ones bucketed
// by quantile) and every group receives a proportional share of each
// stratum.
package sampling

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/strata-analytics/strata/core/frame"
	"github.com/strata-analytics/strata/core/shared/errors"
)

// stratumKeySep joins per-column bucket labels into a composite key.
// A unit separator cannot appear in the labels themselves.
const stratumKeySep = "\x1f"

// Plan configures a stratified split.
type Plan struct {
	// Splits is the number of output groups; 0 means 3.
	Splits int
	// NumericBuckets is the quantile bucket count for numeric stratify
	// columns; 0 means 10.
	NumericBuckets int
	// GroupColumn names the appended group column; empty means "group".
	GroupColumn string
	// Rand supplies randomness; nil means a time-seeded generator.
	Rand *rand.Rand
}

func (p Plan) withDefaults() Plan {
	if p.Splits == 0 {
		p.Splits = 3
	}
	if p.NumericBuckets == 0 {
		p.NumericBuckets = 10
	}
	if p.GroupColumn == "" {
		p.GroupColumn = "group"
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return p
}

// ProportionalStratifiedSample partitions the frame's rows into Splits
// disjoint groups, stratified on the given columns, and returns a copy of
// the frame with the group column appended. Group sizes are near-equal
// within every stratum. Each stratum must hold at least Splits rows.
func ProportionalStratifiedSample(f *frame.Frame, stratifyCols []string, plan Plan) (*frame.Frame, error) {
	plan = plan.withDefaults()

	if plan.Splits < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "splits must be >= 1, got %d", plan.Splits)
	}
	if len(stratifyCols) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "at least one stratify column is required")
	}
	if f.HasColumn(plan.GroupColumn) {
		return nil, errors.Newf(errors.ErrCodeValidationError,
			"input already has a '%s' column", plan.GroupColumn)
	}

	keys, err := stratumKeys(f, stratifyCols, plan.NumericBuckets)
	if err != nil {
		return nil, err
	}

	strata := make(map[string][]int)
	for i, key := range keys {
		strata[key] = append(strata[key], i)
	}

	minCount := f.NumRows()
	for _, rows := range strata {
		if len(rows) < minCount {
			minCount = len(rows)
		}
	}
	if minCount < plan.Splits {
		return nil, errors.Newf(errors.ErrCodeValidationError,
			"at least one stratum has too few rows (%d) to be split into %d groups; "+
				"reduce the number of stratify columns (currently %d) or the number of "+
				"buckets per numeric column (currently %d)",
			minCount, plan.Splits, len(stratifyCols), plan.NumericBuckets)
	}

	groups := assignGroups(strata, f.NumRows(), plan)
	for _, g := range groups {
		if g == nil {
			return nil, errors.New(errors.ErrCodeInternalError,
				"some rows were not assigned a group")
		}
	}

	out := f.Clone()
	if err := out.AppendColumn(plan.GroupColumn, groups); err != nil {
		return nil, err
	}
	return out, nil
}

// stratumKeys computes the composite stratum key per row. Numeric columns
// are quantile-bucketed first; everything else stratifies on its string
// form.
func stratumKeys(f *frame.Frame, stratifyCols []string, buckets int) ([]string, error) {
	labelCols := make([][]string, len(stratifyCols))
	for c, col := range stratifyCols {
		if !f.HasColumn(col) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "stratify column '%s' not found", col)
		}
		if f.IsNumeric(col) {
			values, err := f.Float64s(col)
			if err != nil {
				return nil, err
			}
			labels, err := frame.QCut(values, buckets)
			if err != nil {
				return nil, err
			}
			labelCols[c] = labels
		} else {
			values, err := f.Column(col)
			if err != nil {
				return nil, err
			}
			labels := make([]string, len(values))
			for i, v := range values {
				labels[i] = frame.CellString(v)
			}
			labelCols[c] = labels
		}
	}

	keys := make([]string, f.NumRows())
	parts := make([]string, len(stratifyCols))
	for i := range keys {
		for c := range labelCols {
			parts[c] = labelCols[c][i]
		}
		keys[i] = strings.Join(parts, stratumKeySep)
	}
	return keys, nil
}

// assignGroups allocates rows to groups stratum by stratum. Round i draws
// a 1/(splits-i) fraction of each stratum's still-unassigned rows without
// replacement; the final round sweeps up the remainder, so the partition
// is exhaustive and disjoint.
func assignGroups(strata map[string][]int, numRows int, plan Plan) []any {
	groups := make([]any, numRows)

	// Strata are processed in key order so a seeded Rand always sees the
	// same draw sequence and assignments are reproducible.
	keys := make([]string, 0, len(strata))
	for key := range strata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rows := strata[key]
		remaining := make([]int, len(rows))
		copy(remaining, rows)

		for i := 0; i < plan.Splits; i++ {
			frac := 1.0 / float64(plan.Splits-i)
			take := int(math.Round(frac * float64(len(remaining))))
			if take > len(remaining) {
				take = len(remaining)
			}

			plan.Rand.Shuffle(len(remaining), func(a, b int) {
				remaining[a], remaining[b] = remaining[b], remaining[a]
			})
			for _, rowIdx := range remaining[:take] {
				groups[rowIdx] = i
			}
			remaining = remaining[take:]
		}
	}
	return groups
}
