package frame

import (
	"math"
	"sort"
	"strconv"

	"github.com/strata-analytics/strata/core/shared/errors"
)

// QCut assigns each value to one of q quantile buckets and returns one
// interval label per value in input order. Buckets hold near-equal
// populations; duplicate quantile edges (heavily tied data) are collapsed,
// so fewer than q distinct buckets may come back.
func QCut(values []float64, q int) ([]string, error) {
	if q < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "bucket count must be >= 1, got %d", q)
	}
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot bucket an empty column")
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	edges := quantileEdges(sorted, q)

	labels := make([]string, len(edges)-1)
	for i := 0; i < len(edges)-1; i++ {
		labels[i] = "(" + formatEdge(edges[i]) + ", " + formatEdge(edges[i+1]) + "]"
	}

	out := make([]string, len(values))
	for i, v := range values {
		out[i] = labels[bucketIndex(edges, v)]
	}
	return out, nil
}

// quantileEdges computes q+1 bin edges over sorted data using linear
// interpolation between order statistics, collapsing duplicates. The
// lowest edge is nudged below the minimum so the first interval covers it.
func quantileEdges(sorted []float64, q int) []float64 {
	n := len(sorted)
	raw := make([]float64, 0, q+1)
	for i := 0; i <= q; i++ {
		p := float64(i) / float64(q)
		pos := p * float64(n-1)
		lo := int(math.Floor(pos))
		frac := pos - float64(lo)
		edge := sorted[lo]
		if frac > 0 && lo+1 < n {
			edge += frac * (sorted[lo+1] - sorted[lo])
		}
		raw = append(raw, edge)
	}

	edges := raw[:1]
	for _, e := range raw[1:] {
		if e > edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	// All values identical: a single degenerate bucket.
	if len(edges) == 1 {
		edges = append(edges, edges[0])
	}

	span := edges[len(edges)-1] - edges[0]
	if span == 0 {
		span = 1
	}
	edges[0] -= span * 0.001
	return edges
}

// bucketIndex returns the interval index for v given ascending edges.
// Intervals are half-open (lo, hi]; values past the last edge clamp into
// the final bucket.
func bucketIndex(edges []float64, v float64) int {
	for i := 1; i < len(edges); i++ {
		if v <= edges[i] {
			return i - 1
		}
	}
	return len(edges) - 2
}

// formatEdge uses the shortest exact representation so distinct edges
// always yield distinct labels, however close they sit.
func formatEdge(e float64) string {
	return strconv.FormatFloat(e, 'g', -1, 64)
}
