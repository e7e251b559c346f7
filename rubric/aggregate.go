//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package rubric

import "math"

// AggregateResult combines the evaluations of every prompt extracted from a
// single run into one reportable outcome.
type AggregateResult struct {
	// OverallPass is the logical AND of every input's pass flag.
	OverallPass bool `json:"overallPass"`
	// Score is the arithmetic mean of input scores, rounded.
	Score int `json:"score"`
	// Metrics holds per-dimension means, rounded.
	Metrics Metrics `json:"metrics"`
	// Issues concatenates input issue lists in input order, so issues stay
	// grouped by their source artifact.
	Issues []Issue `json:"issues,omitempty"`
	// Suggestions is the union of input suggestions, first occurrence wins.
	Suggestions []string `json:"suggestions,omitempty"`
	// Evaluated is the number of results that were combined.
	Evaluated int `json:"evaluated"`
}

// HasErrorIssue reports whether any combined issue carries error severity.
func (a *AggregateResult) HasErrorIssue() bool {
	for _, is := range a.Issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of combined issues per severity.
func (a *AggregateResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, is := range a.Issues {
		counts[is.Severity]++
	}
	return counts
}

// Aggregate combines one or more results. A single result passes through
// unchanged apart from the type. Aggregating zero results yields a passing,
// empty outcome; callers are expected to treat the zero-prompt case as a
// pipeline no-op before ever reaching this point.
func Aggregate(results []*Result) *AggregateResult {
	agg := &AggregateResult{OverallPass: true, Evaluated: len(results)}
	if len(results) == 0 {
		return agg
	}

	var scoreSum int
	var m [5]int
	for _, r := range results {
		agg.OverallPass = agg.OverallPass && r.OverallPass
		scoreSum += r.Score
		m[0] += r.Metrics.Clarity
		m[1] += r.Metrics.Completeness
		m[2] += r.Metrics.Specificity
		m[3] += r.Metrics.Safety
		m[4] += r.Metrics.BestPractices
		agg.Issues = append(agg.Issues, r.Issues...)
		agg.Suggestions = appendUnique(agg.Suggestions, r.Suggestions...)
	}

	n := float64(len(results))
	agg.Score = int(math.Round(float64(scoreSum) / n))
	agg.Metrics = Metrics{
		Clarity:       int(math.Round(float64(m[0]) / n)),
		Completeness:  int(math.Round(float64(m[1]) / n)),
		Specificity:   int(math.Round(float64(m[2]) / n)),
		Safety:        int(math.Round(float64(m[3]) / n)),
		BestPractices: int(math.Round(float64(m[4]) / n)),
	}
	return agg
}
