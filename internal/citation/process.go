// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// Stats aggregates the outcome of processing one document.
type Stats struct {
	Resolved   []types.ResolvedCitation   `json:"resolved" yaml:"resolved"`
	Unresolved []types.UnresolvedCitation `json:"unresolved" yaml:"unresolved"`
	Warnings   []types.Warning            `json:"warnings" yaml:"warnings"`
}

// ResolvedCount returns the number of rewritten citations.
func (s Stats) ResolvedCount() int {
	return len(s.Resolved)
}

// UnresolvedCount returns the number of citations left as they were.
func (s Stats) UnresolvedCount() int {
	return len(s.Unresolved)
}

// UniqueUnresolved returns the distinct unresolved keys, sorted.
func (s Stats) UniqueUnresolved() []string {
	seen := make(map[string]bool, len(s.Unresolved))
	var keys []string
	for _, u := range s.Unresolved {
		if !seen[u.Key] {
			seen[u.Key] = true
			keys = append(keys, u.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Merge appends other to s.
func (s *Stats) Merge(other Stats) {
	s.Resolved = append(s.Resolved, other.Resolved...)
	s.Unresolved = append(s.Unresolved, other.Unresolved...)
	s.Warnings = append(s.Warnings, other.Warnings...)
}

// Process rewrites every line. The output always has the same number of
// lines as the input, in the same order; lines without citations are
// copied through. Unresolved keys are collected and never stop the run.
// A render warning is reported once per kind and key, at its first line.
func Process(lines []string, r *Rewriter) ([]string, Stats) {
	out := make([]string, len(lines))
	var stats Stats
	reported := make(map[string]bool)

	for i, line := range lines {
		res := r.RewriteLine(line)
		out[i] = res.Line

		for _, p := range res.Resolved {
			stats.Resolved = append(stats.Resolved, types.ResolvedCitation{
				Line: i, Key: p.Key, Replacement: p.Replacement,
			})
		}
		for _, key := range res.Unresolved {
			stats.Unresolved = append(stats.Unresolved, types.UnresolvedCitation{Line: i, Key: key})
			stats.Warnings = append(stats.Warnings, types.Warning{
				Kind:    types.WarnUnresolvedCitation,
				Key:     key,
				Message: "no master record for this key; left unchanged",
				Line:    i,
			})
		}
		for _, w := range res.Warnings {
			id := fmt.Sprintf("%s\x00%s", w.Kind, w.Key)
			if reported[id] {
				continue
			}
			reported[id] = true
			w.Line = i
			stats.Warnings = append(stats.Warnings, w)
		}
	}
	return out, stats
}

// SplitLines splits text into lines that keep their "\n" terminators, so
// joining them restores the text exactly.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ProcessText runs Process over a whole document.
func ProcessText(text string, r *Rewriter) (string, Stats) {
	out, stats := Process(SplitLines(text), r)
	return strings.Join(out, ""), stats
}
