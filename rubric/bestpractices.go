//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package rubric

import "fmt"

var (
	roleTerms       = []string{"you are", "act as", "role", "persona"}
	criterionTerms  = []string{"success", "criteria", "must", "should", "ensure"}
	constraintTerms = []string{"constraint", "limit", "only", "do not", "avoid", "never"}
)

const (
	minPromptLength = 50
	maxPromptLength = 4000
	tooShortPenalty = 20
	tooLongPenalty  = 15

	// degenerateScoreCap bounds the overall score of content below the
	// minimum length.
	degenerateScoreCap = 40
)

// scoreBestPractices penalizes degenerate lengths and suggests, without
// penalty, role framing, success criteria and explicit constraints.
func scoreBestPractices(content string) dimension {
	d := dimension{score: 100}

	if len(content) < minPromptLength {
		d.penalize(tooShortPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryBestPractices,
			Message:    fmt.Sprintf("prompt is only %d characters; too short to constrain the model", len(content)),
			Suggestion: "Expand the prompt with context, task and output expectations.",
		})
	}
	if len(content) > maxPromptLength {
		d.penalize(tooLongPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryBestPractices,
			Message:    fmt.Sprintf("prompt is %d characters; overly long prompts dilute instructions", len(content)),
			Suggestion: "Trim background that does not change the expected output.",
		})
	}

	if _, ok := containsAnyWord(content, roleTerms); !ok {
		d.suggestions = append(d.suggestions,
			"Give the model a role or persona to anchor tone and expertise.")
	}
	if _, ok := containsAnyWord(content, criterionTerms); !ok {
		d.suggestions = append(d.suggestions,
			"State a success criterion so output quality is checkable.")
	}
	if _, ok := containsAnyWord(content, constraintTerms); !ok {
		d.suggestions = append(d.suggestions,
			"Add explicit constraints: what the answer must not do or include.")
	}

	return d
}
