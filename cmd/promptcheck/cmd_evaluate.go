//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptcheck/promptcheck/report"
	"github.com/promptcheck/promptcheck/rubric"
)

var (
	evaluateBaseline  string
	evaluateThreshold int
	evaluateJSON      bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <prompt-file>",
	Short: "Score a local prompt file against the rubric",
	Long: `Evaluates one prompt file without any network access and prints the
rendered report to stdout. With --baseline, the drift analysis runs against
the given previous version. Exits non-zero when the prompt fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateBaseline, "baseline", "b", "", "path to the baseline prompt file")
	evaluateCmd.Flags().IntVarP(&evaluateThreshold, "threshold", "t", rubric.DefaultThreshold, "pass threshold in [0, 100]")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the raw result as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read prompt: %w", err)
	}

	opts := []rubric.Option{rubric.WithThreshold(evaluateThreshold)}
	if evaluateBaseline != "" {
		baseline, err := os.ReadFile(evaluateBaseline)
		if err != nil {
			return fmt.Errorf("read baseline: %w", err)
		}
		opts = append(opts, rubric.WithBaseline(string(baseline)))
	}

	res := rubric.Evaluate(string(content), opts...)
	for i := range res.Issues {
		res.Issues[i].Source = args[0]
	}

	if evaluateJSON {
		if err := printJSON(cmd, res); err != nil {
			return err
		}
	} else {
		printRendered(cmd, args[0], res)
	}

	if !res.OverallPass {
		return fmt.Errorf("prompt scored %d, below threshold %d or vetoed by an error issue",
			res.Score, evaluateThreshold)
	}
	return nil
}

func printRendered(cmd *cobra.Command, name string, res *rubric.Result) {
	agg := rubric.Aggregate([]*rubric.Result{res})
	var drifts []report.NamedDrift
	if res.Drift != nil {
		drifts = append(drifts, report.NamedDrift{Name: name, Drift: res.Drift})
	}
	rendered := report.Render(report.Input{Aggregate: agg, Drifts: drifts})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rendered.Title)
	fmt.Fprintln(out)
	fmt.Fprintln(out, rendered.Summary)
	fmt.Fprintln(out, rendered.Body)
}

func printJSON(cmd *cobra.Command, res *rubric.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
