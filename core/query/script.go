// Package query loads multi-step extraction scripts, splits them on marker
// lines, and runs the resulting steps in order against a connector with
// per-step result caching.
package query

import (
	"os"
	"strings"

	"github.com/strata-analytics/strata/core/shared/errors"
)

// Marker substrings recognized inside script text. A marker matches
// anywhere on a line, so scripts keep them in SQL comments:
//
//	-- SUB_QUERY load base population
//	-- BASE_QUERY
//	WITH base AS (...)
//	-- QUERY_STEP enrich with arpu
//	SELECT ...
const (
	MarkerSubQuery  = "SUB_QUERY"
	MarkerBaseQuery = "BASE_QUERY"
	MarkerQueryStep = "QUERY_STEP"
)

// Source names where a script comes from: a file path or literal text.
// Exactly one is required; when both are set the file wins.
type Source struct {
	File string
	Text string
}

// Script is a parsed extraction script: ordered groups of ordered,
// executable step statements.
type Script struct {
	source  Source
	bySteps bool
	groups  [][]string
}

// Load reads and parses a script. With bySteps false the whole text is a
// single executable statement.
func Load(src Source, bySteps bool) (*Script, error) {
	if src.File == "" && src.Text == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"either a script file or literal source must be provided")
	}
	s := &Script{source: src, bySteps: bySteps}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads file-backed scripts and re-parses, so long-lived runners
// pick up edits between runs.
func (s *Script) Reload() error {
	text := s.source.Text
	if s.source.File != "" {
		data, err := os.ReadFile(s.source.File)
		if err != nil {
			return errors.Wrap(errors.ErrCodeNotFound,
				"cannot read script file '"+s.source.File+"'", err)
		}
		text = string(data)
	}

	if s.bySteps {
		s.groups = ParseSteps(text)
	} else {
		s.groups = [][]string{{text}}
	}
	return nil
}

// File returns the backing file path, if any.
func (s *Script) File() string {
	return s.source.File
}

// Groups returns the parsed groups of step statements.
func (s *Script) Groups() [][]string {
	return s.groups
}

// Steps returns every step statement flattened in execution order.
func (s *Script) Steps() []string {
	var out []string
	for _, group := range s.groups {
		out = append(out, group...)
	}
	return out
}

// NumSteps returns the total number of executable steps.
func (s *Script) NumSteps() int {
	n := 0
	for _, group := range s.groups {
		n += len(group)
	}
	return n
}

// ParseSteps splits script text into groups on SUB_QUERY marker lines and
// each group into cumulative steps on BASE_QUERY/QUERY_STEP marker lines.
// Step k of a group is the text from the first marker through the k-th,
// so every step carries the shared base prefix. Parsing is pure: the same
// text always yields the same ordered steps.
func ParseSteps(text string) [][]string {
	lines := splitLines(text)

	var starts []int
	for i, line := range lines {
		if strings.Contains(line, MarkerSubQuery) {
			starts = append(starts, i)
		}
	}

	var blocks [][]string
	if len(starts) == 0 {
		// No group markers: the whole script is one group.
		blocks = [][]string{lines}
	} else {
		for i, start := range starts {
			end := len(lines)
			if i+1 < len(starts) {
				end = starts[i+1]
			}
			blocks = append(blocks, lines[start:end])
		}
	}

	groups := make([][]string, len(blocks))
	for i, block := range blocks {
		groups[i] = parseGroupSteps(block)
	}
	return groups
}

// parseGroupSteps expands one group's lines into cumulative statements.
func parseGroupSteps(lines []string) []string {
	var markers []int
	for i, line := range lines {
		if strings.Contains(line, MarkerBaseQuery) || strings.Contains(line, MarkerQueryStep) {
			markers = append(markers, i)
		}
	}

	if len(markers) == 0 {
		return []string{strings.Join(lines, "")}
	}

	base := markers[0]
	steps := make([]string, 0, len(markers))
	for _, end := range append(markers[1:], len(lines)) {
		steps = append(steps, strings.Join(lines[base:end], ""))
	}
	return steps
}

// splitLines splits text into lines, each keeping its trailing newline,
// so joining a slice reproduces the original text byte for byte.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
