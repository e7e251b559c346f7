//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package artifact

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt is one evaluable text unit, optionally paired with the baseline it
// should be diffed against.
type Prompt struct {
	// Name identifies the prompt for report grouping.
	Name string
	// Content is the prompt text.
	Content string
	// Baseline is the previously recorded text, empty when none was found.
	Baseline string
}

// structuredPayload is the JSON shape the optimization tooling emits.
// Either a single prompt or a list; baseline is optional in both cases.
type structuredPayload struct {
	Prompt   string   `json:"prompt"`
	Prompts  []string `json:"prompts"`
	Baseline string   `json:"baseline"`
}

// baselineMarker tags bundle entries that record the previous version of a
// sibling prompt file: "greeting.baseline.txt" pairs with "greeting.txt".
const baselineMarker = ".baseline"

// ExtractPrompts turns raw artifacts into prompts. Structured JSON payloads
// contribute their prompt fields; anything else is treated as raw text.
// Unparseable structured content falls back to the raw interpretation, and
// blank content is skipped. The result may be empty; callers treat that as a
// deliberate no-op, not an error.
func ExtractPrompts(artifacts []*Artifact) []*Prompt {
	baselines := make(map[string]string)
	for _, a := range artifacts {
		if base, ok := baselineNameFor(a.Name); ok {
			baselines[base] = a.Content
		}
	}

	var prompts []*Prompt
	for _, a := range artifacts {
		if _, ok := baselineNameFor(a.Name); ok {
			continue
		}
		for _, p := range extractOne(a) {
			if p.Baseline == "" {
				p.Baseline = baselines[a.Name]
			}
			prompts = append(prompts, p)
		}
	}
	return prompts
}

func extractOne(a *Artifact) []*Prompt {
	trimmed := strings.TrimSpace(a.Content)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var payload structuredPayload
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			if prompts := fromStructured(a.Name, payload); len(prompts) > 0 {
				return prompts
			}
			// Parsed but carried no prompt fields: fall through to the raw
			// interpretation below.
		}
	}

	return []*Prompt{{Name: a.Name, Content: trimmed}}
}

func fromStructured(name string, payload structuredPayload) []*Prompt {
	var prompts []*Prompt
	if p := strings.TrimSpace(payload.Prompt); p != "" {
		prompts = append(prompts, &Prompt{Name: name, Content: p, Baseline: payload.Baseline})
	}
	for i, raw := range payload.Prompts {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		prompts = append(prompts, &Prompt{
			Name:     fmt.Sprintf("%s#%d", name, i+1),
			Content:  p,
			Baseline: payload.Baseline,
		})
	}
	return prompts
}

// baselineNameFor maps "dir/name.baseline.ext" to "dir/name.ext". The second
// return is false when the name carries no baseline marker.
func baselineNameFor(name string) (string, bool) {
	idx := strings.LastIndex(name, baselineMarker)
	if idx < 0 {
		return "", false
	}
	return name[:idx] + name[idx+len(baselineMarker):], true
}
