//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package rubric

import (
	"fmt"
	"strings"
)

var (
	vagueTerms = []string{
		"some", "various", "several", "things", "stuff", "etc",
		"a few", "many", "appropriate", "relevant",
	}
	unboundedTerms = []string{"anything", "whatever", "everything", "and so on"}
)

const (
	vaguePenalty     = 8
	numeralMinLength = 200
	noNumeralPenalty = 10
	unboundedPenalty = 15
)

// scoreSpecificity penalizes placeholder vocabulary, the total absence of
// numbers in longer prompts, and open-ended phrasing.
func scoreSpecificity(content string) dimension {
	d := dimension{score: 100}

	for _, term := range vagueTerms {
		if !containsWord(content, term) {
			continue
		}
		d.penalize(vaguePenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityInfo,
			Category:   CategorySpecificity,
			Message:    fmt.Sprintf("vague term %q; the model has to guess what qualifies", term),
			Line:       lineOf(content, term),
			Suggestion: "Replace placeholders with concrete names or quantities.",
		})
	}

	if len(content) > numeralMinLength && !strings.ContainsAny(content, "0123456789") {
		d.penalize(noNumeralPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityInfo,
			Category:   CategorySpecificity,
			Message:    "no quantities anywhere in a long prompt",
			Suggestion: "Quantify expectations: counts, lengths, limits.",
		})
	}

	if term, ok := containsAnyWord(content, unboundedTerms); ok {
		d.penalize(unboundedPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategorySpecificity,
			Message:    fmt.Sprintf("open-ended phrasing %q leaves the task unbounded", term),
			Line:       lineOf(content, term),
			Suggestion: "Bound the task: say what is in scope and what is not.",
		})
	}

	return d
}
