//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package rubric

import (
	"math"
	"strings"
)

// Dimension weights for the overall score. They sum to 1.
const (
	weightClarity       = 0.20
	weightCompleteness  = 0.25
	weightSpecificity   = 0.20
	weightSafety        = 0.20
	weightBestPractices = 0.15
)

// Evaluate scores content against the five-dimension rubric and returns a
// fully populated Result. It never fails: empty or degenerate input yields a
// worst-case score, not an error.
func Evaluate(content string, opt ...Option) *Result {
	opts := newOptions(opt...)

	clarity := scoreClarity(content)
	completeness := scoreCompleteness(content)
	specificity := scoreSpecificity(content)
	safety := scoreSafety(content)
	best := scoreBestPractices(content)

	res := &Result{
		Metrics: Metrics{
			Clarity:       clarity.score,
			Completeness:  completeness.score,
			Specificity:   specificity.score,
			Safety:        safety.score,
			BestPractices: best.score,
		},
	}
	for _, d := range []dimension{clarity, completeness, specificity, safety, best} {
		res.Issues = append(res.Issues, d.issues...)
		res.Suggestions = appendUnique(res.Suggestions, d.suggestions...)
	}

	res.Score = int(math.Round(
		weightClarity*float64(clarity.score) +
			weightCompleteness*float64(completeness.score) +
			weightSpecificity*float64(specificity.score) +
			weightSafety*float64(safety.score) +
			weightBestPractices*float64(best.score)))

	// Degenerate input still gets a defined, worst-case score: content too
	// short to stand alone cannot pass on the strength of the checks it is
	// too small to trigger.
	switch {
	case strings.TrimSpace(content) == "":
		res.Score = 0
		res.Metrics = Metrics{}
	case len(content) < minPromptLength:
		if res.Score > degenerateScoreCap {
			res.Score = degenerateScoreCap
		}
	}

	res.OverallPass = res.Score >= opts.threshold && !res.HasErrorIssue()

	if opts.baseline != nil {
		res.Drift = AnalyzeDrift(content, *opts.baseline)
	}
	return res
}

// dimension is the output of one sub-scorer.
type dimension struct {
	score       int
	issues      []Issue
	suggestions []string
}

// penalize subtracts points, flooring the score at 0.
func (d *dimension) penalize(points int) {
	d.score -= points
	if d.score < 0 {
		d.score = 0
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

// lineOf returns the 1-based line of the first occurrence of term in content
// (case-insensitive), or 0 when absent.
func lineOf(content, term string) int {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, strings.ToLower(term))
	if idx < 0 {
		return 0
	}
	return 1 + strings.Count(lower[:idx], "\n")
}

// containsWord reports whether content contains term as a whole word,
// case-insensitively. Multi-word terms match as substrings.
func containsWord(content, term string) bool {
	lower := strings.ToLower(content)
	term = strings.ToLower(term)
	if strings.ContainsAny(term, " -_") {
		return strings.Contains(lower, term)
	}
	start := 0
	for {
		idx := strings.Index(lower[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !isWordByte(lower[idx-1])
		afterIdx := idx + len(term)
		after := afterIdx >= len(lower) || !isWordByte(lower[afterIdx])
		if before && after {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

func containsAnyWord(content string, terms []string) (string, bool) {
	for _, t := range terms {
		if containsWord(content, t) {
			return t, true
		}
	}
	return "", false
}
