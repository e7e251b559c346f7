//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package rubric

// Vocabulary groups used as evidence that a prompt covers the basics:
// context for the model, an actual instruction, and an expected output shape.
var (
	contextTerms = []string{
		"context", "background", "given", "you are", "scenario",
		"assume", "consider",
	}
	instructionTerms = []string{
		"write", "create", "generate", "explain", "list", "describe",
		"analyze", "summarize", "provide", "translate", "classify",
		"extract", "answer",
	}
	outputFormatTerms = []string{
		"format", "output", "respond with", "return", "json", "markdown",
		"bullet", "table", "structure",
	}
	exampleTerms = []string{"example", "e.g.", "for instance", "such as"}
)

const (
	missingContextPenalty     = 15
	missingInstructionPenalty = 20
	missingFormatPenalty      = 15
	exampleMinLength          = 500
	missingExamplePenalty     = 10
)

// scoreCompleteness checks for context, instructional language and an output
// format. Long prompts without examples lose points but only raise a
// suggestion, not an issue.
func scoreCompleteness(content string) dimension {
	d := dimension{score: 100}

	if _, ok := containsAnyWord(content, contextTerms); !ok {
		d.penalize(missingContextPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryCompleteness,
			Message:    "no context or background framing found",
			Suggestion: "Open with the situation or role the model should assume.",
		})
	}

	if _, ok := containsAnyWord(content, instructionTerms); !ok {
		d.penalize(missingInstructionPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryCompleteness,
			Message:    "no instructional verb found; the task is implicit at best",
			Suggestion: "State the task with an imperative verb (write, list, explain...).",
		})
	}

	if _, ok := containsAnyWord(content, outputFormatTerms); !ok {
		d.penalize(missingFormatPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryCompleteness,
			Message:    "expected output format is not specified",
			Suggestion: "Describe the desired output shape (JSON, bullet list, prose length...).",
		})
	}

	if len(content) > exampleMinLength {
		if _, ok := containsAnyWord(content, exampleTerms); !ok {
			d.penalize(missingExamplePenalty)
			d.suggestions = append(d.suggestions,
				"Add one or two worked examples; long prompts benefit most from them.")
		}
	}

	return d
}
