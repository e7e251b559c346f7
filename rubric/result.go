//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package rubric scores prompt text against a fixed five-dimension rubric.
//
// Scoring is rule based and deterministic: no randomness, no I/O, no model
// calls. Evaluate is a total function over string input, including the empty
// string.
package rubric

// Severity classifies how serious an issue is.
type Severity string

// Severity values, ordered from most to least serious.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category names one of the five rubric dimensions.
type Category string

// Rubric dimensions.
const (
	CategoryClarity       Category = "clarity"
	CategoryCompleteness  Category = "completeness"
	CategorySpecificity   Category = "specificity"
	CategorySafety        Category = "safety"
	CategoryBestPractices Category = "best_practices"
)

// Issue is a single rubric violation found in the evaluated content.
type Issue struct {
	// Severity of the violation.
	Severity Severity `json:"severity"`
	// Category is the rubric dimension that raised the issue.
	Category Category `json:"category"`
	// Message describes the violation.
	Message string `json:"message"`
	// Line is the 1-based line the issue refers to, 0 when content-level.
	Line int `json:"line,omitempty"`
	// Suggestion is an optional remediation hint.
	Suggestion string `json:"suggestion,omitempty"`
	// Source names the artifact the issue came from. Empty for direct
	// evaluations; set by the pipeline before aggregation.
	Source string `json:"source,omitempty"`
}

// Metrics holds the five per-dimension sub-scores, each in [0, 100].
type Metrics struct {
	Clarity       int `json:"clarity"`
	Completeness  int `json:"completeness"`
	Specificity   int `json:"specificity"`
	Safety        int `json:"safety"`
	BestPractices int `json:"bestPractices"`
}

// DriftAnalysis compares evaluated content against a baseline text.
type DriftAnalysis struct {
	// HasBaseline reports whether a baseline was supplied.
	HasBaseline bool `json:"hasBaseline"`
	// DriftPercentage is the line-level divergence in [0, 100].
	DriftPercentage int `json:"driftPercentage"`
	// BreakingChanges is true when the divergence is large enough that the
	// baseline's consumers likely need to adapt.
	BreakingChanges bool `json:"breakingChanges"`
	// ChangedElements lists up to five lines new to the current text.
	ChangedElements []string `json:"changedElements,omitempty"`
}

// Result is the outcome of evaluating one piece of prompt content.
// It is immutable once produced.
type Result struct {
	// OverallPass is true iff Score meets the threshold and no issue has
	// severity error.
	OverallPass bool `json:"overallPass"`
	// Score is the weighted overall score in [0, 100].
	Score int `json:"score"`
	// Metrics contains the per-dimension sub-scores.
	Metrics Metrics `json:"metrics"`
	// Issues lists every rubric violation, in scorer order.
	Issues []Issue `json:"issues,omitempty"`
	// Suggestions is a deduplicated list of improvement hints, in order of
	// first occurrence.
	Suggestions []string `json:"suggestions,omitempty"`
	// Drift is populated only when a baseline was supplied.
	Drift *DriftAnalysis `json:"driftAnalysis,omitempty"`
}

// HasErrorIssue reports whether any issue carries error severity.
func (r *Result) HasErrorIssue() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of issues per severity.
func (r *Result) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, is := range r.Issues {
		counts[is.Severity]++
	}
	return counts
}
