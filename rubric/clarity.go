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

// hedgingTerms is vocabulary that leaves the model guessing what is wanted.
var hedgingTerms = []string{
	"maybe", "perhaps", "possibly", "probably", "might",
	"could be", "sort of", "kind of", "somewhat", "more or less",
}

const (
	maxAvgSentenceWords = 25
	structureMinLength  = 200
	hedgingPenalty      = 5
	longSentencePenalty = 10
	noStructurePenalty  = 10
)

// scoreClarity penalizes hedging vocabulary, overlong sentences and missing
// structure in longer prompts.
func scoreClarity(content string) dimension {
	d := dimension{score: 100}

	for _, term := range hedgingTerms {
		if !containsWord(content, term) {
			continue
		}
		d.penalize(hedgingPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityInfo,
			Category:   CategoryClarity,
			Message:    fmt.Sprintf("hedging language %q weakens the instruction", term),
			Line:       lineOf(content, term),
			Suggestion: "State requirements directly instead of hedging.",
		})
	}

	if avg := averageSentenceWords(content); avg > maxAvgSentenceWords {
		d.penalize(longSentencePenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryClarity,
			Message:    fmt.Sprintf("average sentence length is %d words; long sentences obscure intent", avg),
			Suggestion: "Break long sentences into shorter, single-purpose ones.",
		})
	}

	if len(content) > structureMinLength && !hasStructuralMarkers(content) {
		d.penalize(noStructurePenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityInfo,
			Category:   CategoryClarity,
			Message:    "no headers or list markers in a long prompt",
			Suggestion: "Organize the prompt with headers or numbered steps.",
		})
	}

	return d
}

// averageSentenceWords returns the mean word count per sentence, rounded
// down. Empty content yields 0.
func averageSentenceWords(content string) int {
	sentences := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	total, count := 0, 0
	for _, s := range sentences {
		words := len(strings.Fields(s))
		if words == 0 {
			continue
		}
		total += words
		count++
	}
	if count == 0 {
		return 0
	}
	return total / count
}

// hasStructuralMarkers reports whether any line looks like a header, a
// bullet, or a numbered item.
func hasStructuralMarkers(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") {
			return true
		}
		if idx := strings.IndexAny(trimmed, ".)"); idx > 0 && idx <= 2 && allDigits(trimmed[:idx]) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
