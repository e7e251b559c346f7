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

// maxChangedElements bounds the changed-lines list for display.
const maxChangedElements = 5

// AnalyzeDrift measures line-level divergence of current from baseline.
//
// Similarity is the Dice coefficient over line multisets:
//
//	2 * |common| / (|current| + |baseline|)
//
// DriftPercentage is 100*(1-similarity), rounded. Two empty texts have zero
// drift.
func AnalyzeDrift(current, baseline string) *DriftAnalysis {
	curLines := splitLines(current)
	baseLines := splitLines(baseline)

	da := &DriftAnalysis{HasBaseline: true}

	total := len(curLines) + len(baseLines)
	if total == 0 {
		return da
	}

	baseCounts := make(map[string]int, len(baseLines))
	for _, l := range baseLines {
		baseCounts[l]++
	}
	// Common lines count with multiplicity, so a text is never drifted
	// from itself just because it repeats a line.
	remaining := make(map[string]int, len(baseCounts))
	for l, n := range baseCounts {
		remaining[l] = n
	}
	common := 0
	for _, l := range curLines {
		if remaining[l] > 0 {
			common++
			remaining[l]--
		}
	}

	similarity := 2 * float64(common) / float64(total)
	da.DriftPercentage = clampPercent(int(math.Round(100 * (1 - similarity))))

	lineCountDelta := len(curLines) - len(baseLines)
	if lineCountDelta < 0 {
		lineCountDelta = -lineCountDelta
	}
	da.BreakingChanges = da.DriftPercentage > 50 ||
		(len(baseLines) > 0 && float64(lineCountDelta) > 0.5*float64(len(baseLines)))

	for _, l := range curLines {
		if baseCounts[l] > 0 {
			continue
		}
		if containsString(da.ChangedElements, l) {
			continue
		}
		da.ChangedElements = append(da.ChangedElements, l)
		if len(da.ChangedElements) == maxChangedElements {
			break
		}
	}
	return da
}

// splitLines returns trimmed, non-empty lines.
func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
