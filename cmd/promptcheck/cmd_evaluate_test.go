//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptcheck/promptcheck/rubric"
)

const planningPrompt = "You are a planner. Given the context, list 5 steps in markdown format. Ensure each step is actionable."

func writePrompt(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runEvaluateCommand(t *testing.T, args []string) (string, error) {
	t.Helper()
	evaluateBaseline = ""
	evaluateThreshold = rubric.DefaultThreshold
	evaluateJSON = false

	cmd := &cobra.Command{RunE: runEvaluate}
	cmd.Flags().StringVarP(&evaluateBaseline, "baseline", "b", "", "")
	cmd.Flags().IntVarP(&evaluateThreshold, "threshold", "t", rubric.DefaultThreshold, "")
	cmd.Flags().BoolVar(&evaluateJSON, "json", false, "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluateCommandRendersReport(t *testing.T) {
	path := writePrompt(t, planningPrompt)
	out, err := runEvaluateCommand(t, []string{path})

	want := rubric.Evaluate(planningPrompt)
	if want.OverallPass {
		assert.NoError(t, err)
	} else {
		assert.Error(t, err)
	}
	assert.Contains(t, out, "Prompt evaluation:")
	assert.Contains(t, out, "| Clarity |")
	assert.Contains(t, out, "Best practices checklist")
}

func TestEvaluateCommandFailsShortPrompt(t *testing.T) {
	path := writePrompt(t, "Explain quantum computing to a beginner.")
	_, err := runEvaluateCommand(t, []string{path})
	assert.Error(t, err)
}

func TestEvaluateCommandJSON(t *testing.T) {
	path := writePrompt(t, planningPrompt)
	out, _ := runEvaluateCommand(t, []string{path, "--json"})
	assert.Contains(t, out, `"score"`)
	assert.Contains(t, out, `"metrics"`)
}

func TestEvaluateCommandBaselineDrift(t *testing.T) {
	path := writePrompt(t, planningPrompt+"\nAlways answer in English.")
	basePath := filepath.Join(t.TempDir(), "baseline.txt")
	require.NoError(t, os.WriteFile(basePath, []byte(planningPrompt), 0o600))

	out, _ := runEvaluateCommand(t, []string{path, "--baseline", basePath})
	assert.Contains(t, out, "Drift from baseline")
}

func TestEvaluateCommandMissingFile(t *testing.T) {
	_, err := runEvaluateCommand(t, []string{filepath.Join(t.TempDir(), "absent.txt")})
	assert.Error(t, err)
}
