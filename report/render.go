//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package report renders aggregated rubric results into check-run output and
// publishes them, exactly one authoritative report per commit.
package report

import (
	"fmt"
	"strings"

	"github.com/promptcheck/promptcheck/github"
	"github.com/promptcheck/promptcheck/rubric"
)

// Metric glyph thresholds for the summary table.
const (
	metricGoodFloor = 80
	metricOKFloor   = 60
)

// NamedDrift pairs a drift analysis with the prompt it was computed for.
type NamedDrift struct {
	Name  string
	Drift *rubric.DriftAnalysis
}

// Input is everything the renderer needs for one report.
type Input struct {
	// Aggregate is the combined outcome of all evaluated prompts.
	Aggregate *rubric.AggregateResult
	// Drifts holds the per-prompt drift analyses that had a baseline.
	Drifts []NamedDrift
}

// Rendered is a check-run report ready for publishing.
type Rendered struct {
	Title       string
	Summary     string
	Body        string
	Annotations []github.Annotation
}

// Output converts the rendered report into the checks-API shape, enforcing
// the per-request annotation cap.
func (r *Rendered) Output() *github.CheckOutput {
	anns := r.Annotations
	if len(anns) > github.MaxAnnotationsPerRequest {
		anns = anns[:github.MaxAnnotationsPerRequest]
	}
	return &github.CheckOutput{
		Title:       r.Title,
		Summary:     r.Summary,
		Text:        r.Body,
		Annotations: anns,
	}
}

// Render builds the check-run title, summary table, body and annotations
// from an aggregated result.
func Render(in Input) *Rendered {
	agg := in.Aggregate
	return &Rendered{
		Title:       renderTitle(agg),
		Summary:     renderSummary(agg),
		Body:        renderBody(agg, in.Drifts),
		Annotations: renderAnnotations(agg.Issues),
	}
}

func renderTitle(agg *rubric.AggregateResult) string {
	glyph := "❌"
	if agg.OverallPass {
		glyph = "✅"
	}
	return fmt.Sprintf("Prompt evaluation: %d/100 %s", agg.Score, glyph)
}

func renderSummary(agg *rubric.AggregateResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluated %d prompt(s).\n\n", agg.Evaluated)
	b.WriteString("| Metric | Score | Status |\n")
	b.WriteString("|--------|-------|--------|\n")
	writeMetricRow(&b, "Clarity", agg.Metrics.Clarity)
	writeMetricRow(&b, "Completeness", agg.Metrics.Completeness)
	writeMetricRow(&b, "Specificity", agg.Metrics.Specificity)
	writeMetricRow(&b, "Safety", agg.Metrics.Safety)
	writeMetricRow(&b, "Best practices", agg.Metrics.BestPractices)

	counts := agg.CountBySeverity()
	fmt.Fprintf(&b, "\nIssues: %d error, %d warning, %d info\n",
		counts[rubric.SeverityError],
		counts[rubric.SeverityWarning],
		counts[rubric.SeverityInfo])
	return b.String()
}

func writeMetricRow(b *strings.Builder, name string, score int) {
	fmt.Fprintf(b, "| %s | %d | %s |\n", name, score, metricGlyph(score))
}

func metricGlyph(score int) string {
	switch {
	case score >= metricGoodFloor:
		return "✓"
	case score >= metricOKFloor:
		return "⚠"
	default:
		return "✗"
	}
}

func renderBody(agg *rubric.AggregateResult, drifts []NamedDrift) string {
	var b strings.Builder

	if len(agg.Issues) > 0 {
		b.WriteString("### Issues\n\n")
		for _, is := range agg.Issues {
			writeIssueLine(&b, is)
		}
		b.WriteString("\n")
	}

	if len(agg.Suggestions) > 0 {
		b.WriteString("### Suggestions\n\n")
		for _, s := range agg.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	if section := renderDrift(drifts); section != "" {
		b.WriteString(section)
	}

	b.WriteString(bestPracticesChecklist)
	return b.String()
}

func writeIssueLine(b *strings.Builder, is rubric.Issue) {
	fmt.Fprintf(b, "- %s **%s**", severityIcon(is.Severity), is.Category)
	if is.Source != "" {
		fmt.Fprintf(b, " `%s`", is.Source)
	}
	if is.Line > 0 {
		fmt.Fprintf(b, " (line %d)", is.Line)
	}
	fmt.Fprintf(b, ": %s", is.Message)
	if is.Suggestion != "" {
		fmt.Fprintf(b, " Suggestion: %s", is.Suggestion)
	}
	b.WriteString("\n")
}

func severityIcon(s rubric.Severity) string {
	switch s {
	case rubric.SeverityError:
		return "🛑"
	case rubric.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func renderDrift(drifts []NamedDrift) string {
	var b strings.Builder
	for _, d := range drifts {
		if d.Drift == nil || !d.Drift.HasBaseline {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("### Drift from baseline\n\n")
		}
		fmt.Fprintf(&b, "- `%s`: %d%% drift", d.Name, d.Drift.DriftPercentage)
		if d.Drift.BreakingChanges {
			b.WriteString(", **breaking**")
		}
		b.WriteString("\n")
		for _, line := range d.Drift.ChangedElements {
			fmt.Fprintf(&b, "  - + %s\n", line)
		}
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

const bestPracticesChecklist = `### Best practices checklist

- [ ] Define a role or persona for the model.
- [ ] Provide context and background for the task.
- [ ] State the expected output format.
- [ ] State a success or completion criterion.
- [ ] Spell out explicit constraints.
- [ ] Include at least one worked example.
`

// renderAnnotations maps issues that carry a line to file annotations.
// Issues without a line stay in the body only.
func renderAnnotations(issues []rubric.Issue) []github.Annotation {
	var anns []github.Annotation
	for _, is := range issues {
		if is.Line <= 0 {
			continue
		}
		path := is.Source
		if path == "" {
			path = "prompt"
		}
		anns = append(anns, github.Annotation{
			Path:            path,
			StartLine:       is.Line,
			EndLine:         is.Line,
			AnnotationLevel: annotationLevel(is.Severity),
			Message:         is.Message,
			Title:           string(is.Category),
		})
	}
	return anns
}

func annotationLevel(s rubric.Severity) string {
	switch s {
	case rubric.SeverityError:
		return "failure"
	case rubric.SeverityWarning:
		return "warning"
	default:
		return "notice"
	}
}
