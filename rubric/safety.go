//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package rubric

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	credentialPattern = regexp.MustCompile(
		`(?i)\b(api[_-]?key|password|secret|token|bearer|private[_-]?key)\b`)

	// Shapes of personally identifying data: national ID, email, phone,
	// card number.
	piiPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`),
		regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
	}

	harmfulTerms = []string{
		"exploit", "malware", "ransomware", "phishing",
		"hack into", "bypass security", "steal credentials",
	}
)

const (
	credentialPenalty = 30
	piiPenalty        = 20
	harmfulPenalty    = 25
)

// scoreSafety flags credential-like tokens, personally identifying patterns
// and harmful-action vocabulary. Credentials and harmful vocabulary are
// always error severity, never downgraded to a warning.
func scoreSafety(content string) dimension {
	d := dimension{score: 100}

	if loc := credentialPattern.FindStringIndex(content); loc != nil {
		match := content[loc[0]:loc[1]]
		d.penalize(credentialPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityError,
			Category:   CategorySafety,
			Message:    fmt.Sprintf("credential-like token %q in prompt text", match),
			Line:       lineAt(content, loc[0]),
			Suggestion: "Strip secrets from prompts; inject credentials at call time.",
		})
	}

	for _, p := range piiPatterns {
		loc := p.FindStringIndex(content)
		if loc == nil {
			continue
		}
		d.penalize(piiPenalty)
		d.issues = append(d.issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategorySafety,
			Message:    "personally identifying pattern in prompt text",
			Line:       lineAt(content, loc[0]),
			Suggestion: "Replace real personal data with placeholders.",
		})
		break
	}

	if term, ok := containsAnyWord(content, harmfulTerms); ok {
		d.penalize(harmfulPenalty)
		d.issues = append(d.issues, Issue{
			Severity: SeverityError,
			Category: CategorySafety,
			Message:  fmt.Sprintf("harmful-action vocabulary %q", term),
			Line:     lineOf(content, term),
		})
	}

	return d
}

// lineAt returns the 1-based line containing byte offset idx.
func lineAt(content string, idx int) int {
	if idx < 0 || idx > len(content) {
		return 0
	}
	return 1 + strings.Count(content[:idx], "\n")
}
