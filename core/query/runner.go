package query

import (
	"context"
	"fmt"

	"github.com/strata-analytics/strata/core/connectors"
	"github.com/strata-analytics/strata/core/frame"
	"github.com/strata-analytics/strata/core/logging"
	"github.com/strata-analytics/strata/core/shared/errors"
)

// Transform rewrites one column's values after a step returns. Transforms
// run before the result enters the cache, so hits replay transformed data.
type Transform struct {
	Column string
	Apply  func(any) any
}

// Runner executes a script's steps in order against one connector.
type Runner struct {
	script     *Script
	conn       connectors.Connector
	cache      Cache
	limit      int
	transforms []Transform
	log        *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLimit caps the number of rows fetched per step.
func WithLimit(limit int) Option {
	return func(r *Runner) { r.limit = limit }
}

// WithCache enables result caching for the runner.
func WithCache(cache Cache) Option {
	return func(r *Runner) { r.cache = cache }
}

// WithTransforms applies column transforms to every step result.
func WithTransforms(transforms ...Transform) Option {
	return func(r *Runner) { r.transforms = transforms }
}

// NewRunner creates a runner over a parsed script and a live connector.
func NewRunner(script *Script, conn connectors.Connector, opts ...Option) *Runner {
	r := &Runner{
		script: script,
		conn:   conn,
		log:    logging.New("query:runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run re-reads the script (file-backed scripts may have changed since the
// last run) and executes every step of every group sequentially, in order.
// It returns one frame per step. The first failing step halts the run.
func (r *Runner) Run(ctx context.Context) ([]*frame.Frame, error) {
	if err := r.script.Reload(); err != nil {
		return nil, err
	}

	results := make([]*frame.Frame, 0, r.script.NumSteps())
	for groupIdx, group := range r.script.Groups() {
		for stepIdx, statement := range group {
			result, err := r.runStep(ctx, statement)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeExecutionFailed,
					fmt.Sprintf("group %d step %d failed", groupIdx+1, stepIdx+1), err)
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// runStep executes one statement, consulting the cache first. Cache keys
// are the verbatim statement text.
func (r *Runner) runStep(ctx context.Context, statement string) (*frame.Frame, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(statement); ok {
			r.log.Debug("Using cached result")
			return cached, nil
		}
	}

	result, err := r.conn.Query(ctx, statement, r.limit)
	if err != nil {
		return nil, err
	}

	if len(r.transforms) > 0 {
		if err := applyTransforms(result, r.transforms); err != nil {
			return nil, err
		}
	}

	if r.cache != nil {
		r.cache.Set(statement, result)
	}
	return result, nil
}

func applyTransforms(result *frame.Frame, transforms []Transform) error {
	for _, t := range transforms {
		idx, ok := result.ColumnIndex(t.Column)
		if !ok {
			return errors.Newf(errors.ErrCodeNotFound,
				"transform column '%s' not in result", t.Column)
		}
		for _, row := range result.Rows {
			row[idx] = t.Apply(row[idx])
		}
	}
	return nil
}
