//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package pipeline orchestrates webhook events through retrieval, rubric
// evaluation, aggregation and check-run reporting.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/promptcheck/promptcheck/artifact"
	"github.com/promptcheck/promptcheck/github"
	"github.com/promptcheck/promptcheck/log"
	"github.com/promptcheck/promptcheck/report"
	"github.com/promptcheck/promptcheck/rubric"
	"github.com/promptcheck/promptcheck/telemetry"
)

// DefaultEventTimeout bounds the whole handling of one workflow-run event.
// On expiry the check run completes with a failure diagnostic instead of
// staying in progress.
const DefaultEventTimeout = 5 * time.Minute

// Pipeline stages named in failure diagnostics.
const (
	stageRetrieval  = "retrieval"
	stageEvaluation = "evaluation"
	stageReporting  = "reporting"
)

// Pipeline wires the retriever, evaluator and reporter together. Events for
// different commits share nothing; publishes for one commit are serialized
// by the reporter.
type Pipeline struct {
	service  artifact.Service
	reporter *report.Reporter

	threshold    int
	runKeywords  []string
	eventTimeout time.Duration
	evalPool     *ants.PoolWithFunc
}

type evalParam struct {
	prompt  *artifact.Prompt
	results []*rubric.Result
	idx     int
	wg      *sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	threshold    int
	runKeywords  []string
	eventTimeout time.Duration
	concurrency  int
}

// WithThreshold overrides the pass threshold handed to the evaluator.
func WithThreshold(threshold int) Option {
	return func(o *pipelineOptions) { o.threshold = threshold }
}

// WithRunKeywords overrides the workflow-run name filter.
func WithRunKeywords(keywords []string) Option {
	return func(o *pipelineOptions) {
		if len(keywords) > 0 {
			o.runKeywords = keywords
		}
	}
}

// WithEventTimeout bounds the handling of one workflow-run event.
func WithEventTimeout(d time.Duration) Option {
	return func(o *pipelineOptions) {
		if d > 0 {
			o.eventTimeout = d
		}
	}
}

// WithEvalConcurrency sizes the evaluation worker pool.
func WithEvalConcurrency(n int) Option {
	return func(o *pipelineOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// New creates a Pipeline over the given retriever and reporter.
func New(service artifact.Service, reporter *report.Reporter, opt ...Option) (*Pipeline, error) {
	opts := &pipelineOptions{
		threshold:    rubric.DefaultThreshold,
		runKeywords:  artifact.DefaultKeywords,
		eventTimeout: DefaultEventTimeout,
		concurrency:  max(runtime.NumCPU(), 1),
	}
	for _, o := range opt {
		o(opts)
	}

	p := &Pipeline{
		service:      service,
		reporter:     reporter,
		threshold:    opts.threshold,
		runKeywords:  opts.runKeywords,
		eventTimeout: opts.eventTimeout,
	}
	pool, err := ants.NewPoolWithFunc(opts.concurrency, func(args any) {
		param, ok := args.(*evalParam)
		if !ok {
			panic("evaluation pool args type error")
		}
		defer param.wg.Done()
		param.results[param.idx] = p.evaluateOne(param.prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("create evaluation pool: %w", err)
	}
	p.evalPool = pool
	return p, nil
}

// Close releases the evaluation pool.
func (p *Pipeline) Close() {
	p.evalPool.Release()
}

// HandleCheckSuite opens an in-progress check run when a check suite is
// requested for a commit. Other actions are ignored.
func (p *Pipeline) HandleCheckSuite(ctx context.Context, ev *github.CheckSuiteEvent) error {
	if ev.Action != github.ActionRequested {
		log.Debugf("ignoring check_suite action %q", ev.Action)
		return nil
	}
	telemetry.AddEvent(ctx, github.EventCheckSuite)
	if err := p.reporter.Start(ctx, ev.CheckSuite.HeadSHA); err != nil {
		return fmt.Errorf("open check for %s: %w", ev.CheckSuite.HeadSHA, err)
	}
	return nil
}

// HandleWorkflowRun runs the full retrieve, evaluate, aggregate, report
// sequence for a completed workflow run whose name matches the keyword
// filter. Upstream failures complete the check run as a failure naming the
// broken stage; the run is never left in progress.
func (p *Pipeline) HandleWorkflowRun(ctx context.Context, ev *github.WorkflowRunEvent) error {
	if ev.Action != github.ActionCompleted {
		log.Debugf("ignoring workflow_run action %q", ev.Action)
		return nil
	}
	if !artifact.MatchesKeyword(ev.WorkflowRun.Name, p.runKeywords) {
		log.Debugf("workflow run %q matches no keyword, ignoring", ev.WorkflowRun.Name)
		return nil
	}
	telemetry.AddEvent(ctx, github.EventWorkflowRun)

	ctx, cancel := context.WithTimeout(ctx, p.eventTimeout)
	defer cancel()

	headSHA := ev.WorkflowRun.HeadSHA
	runID := ev.WorkflowRun.ID
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.workflow_run")
	span.SetAttributes(
		attribute.String("vcs.commit.sha", headSHA),
		attribute.Int64("cicd.run.id", runID),
	)
	defer span.End()

	artifacts, err := p.service.FetchArtifacts(ctx, runID)
	if err != nil {
		return p.fail(ctx, headSHA, stageRetrieval, err)
	}
	telemetry.AddArtifacts(ctx, len(artifacts))

	prompts := artifact.ExtractPrompts(artifacts)
	if len(prompts) == 0 {
		log.Infof("run %d produced no prompts, skipping evaluation", runID)
		return p.reporter.PublishNeutral(ctx, headSHA,
			"The triggering run produced no prompt artifacts to evaluate.")
	}

	results, err := p.evaluateAll(ctx, prompts)
	if err != nil {
		return p.fail(ctx, headSHA, stageEvaluation, err)
	}
	telemetry.AddEvaluations(ctx, len(results))

	agg := rubric.Aggregate(results)
	drifts := collectDrifts(prompts, results)
	if err := p.reporter.Publish(ctx, headSHA, agg, drifts); err != nil {
		telemetry.AddPublishFailure(ctx, stageReporting)
		return err
	}
	log.Infof("run %d: %d prompt(s) evaluated, score %d, pass=%v",
		runID, agg.Evaluated, agg.Score, agg.OverallPass)
	return nil
}

// evaluateAll fans prompts out over the evaluation pool and waits for every
// result before returning.
func (p *Pipeline) evaluateAll(ctx context.Context, prompts []*artifact.Prompt) ([]*rubric.Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.evaluate")
	defer span.End()

	results := make([]*rubric.Result, len(prompts))
	var wg sync.WaitGroup
	for i, prompt := range prompts {
		wg.Add(1)
		param := &evalParam{prompt: prompt, results: results, idx: i, wg: &wg}
		if err := p.evalPool.Invoke(param); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("schedule evaluation of %s: %w", prompt.Name, err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateOne scores a single prompt and stamps its name onto every issue
// so aggregation keeps issues grouped by source.
func (p *Pipeline) evaluateOne(prompt *artifact.Prompt) *rubric.Result {
	opts := []rubric.Option{rubric.WithThreshold(p.threshold)}
	if prompt.Baseline != "" {
		opts = append(opts, rubric.WithBaseline(prompt.Baseline))
	}
	res := rubric.Evaluate(prompt.Content, opts...)
	for i := range res.Issues {
		res.Issues[i].Source = prompt.Name
	}
	return res
}

func collectDrifts(prompts []*artifact.Prompt, results []*rubric.Result) []report.NamedDrift {
	var drifts []report.NamedDrift
	for i, res := range results {
		if res.Drift != nil && res.Drift.HasBaseline {
			drifts = append(drifts, report.NamedDrift{Name: prompts[i].Name, Drift: res.Drift})
		}
	}
	return drifts
}

// fail completes the check run with a failure diagnostic for the broken
// stage. A success must never be reported after an upstream error.
func (p *Pipeline) fail(ctx context.Context, headSHA, stage string, cause error) error {
	log.Errorf("%s stage failed for %s: %v", stage, headSHA, cause)
	// Publishing must not ride on the expired event context.
	publishCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
	}
	if err := p.reporter.PublishFailure(publishCtx, headSHA, stage, cause); err != nil {
		telemetry.AddPublishFailure(publishCtx, stage)
		return fmt.Errorf("report %s failure for %s: %w", stage, headSHA, err)
	}
	return cause
}
