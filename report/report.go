//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/promptcheck/promptcheck/github"
	"github.com/promptcheck/promptcheck/log"
	"github.com/promptcheck/promptcheck/rubric"
)

// DefaultCheckName is the check-run name reports publish under.
const DefaultCheckName = "promptcheck"

// publishMaxTries is the total attempts per publish call: one try plus one
// retry with backoff.
const publishMaxTries = 2

// ChecksAPI is the slice of the GitHub client the reporter depends on.
type ChecksAPI interface {
	CreateCheckRun(ctx context.Context, opts github.CheckRunOptions) (*github.CheckRun, error)
	UpdateCheckRun(ctx context.Context, id int64, opts github.CheckRunOptions) (*github.CheckRun, error)
}

// Reporter publishes check runs, enforcing one authoritative report per
// (headSha, checkName) pair. Publishes for the same SHA are serialized with
// an in-process keyed lock; a second publish overwrites rather than
// duplicates.
type Reporter struct {
	api       ChecksAPI
	checkName string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	runs   map[string]int64
	bodies map[string]string
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithCheckName overrides the published check-run name.
func WithCheckName(name string) ReporterOption {
	return func(r *Reporter) {
		if name != "" {
			r.checkName = name
		}
	}
}

// NewReporter creates a Reporter over the given checks API.
func NewReporter(api ChecksAPI, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		api:       api,
		checkName: DefaultCheckName,
		locks:     make(map[string]*sync.Mutex),
		runs:      make(map[string]int64),
		bodies:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lockFor returns the serialization lock for one head SHA.
func (r *Reporter) lockFor(headSHA string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[headSHA]
	if !ok {
		l = &sync.Mutex{}
		r.locks[headSHA] = l
	}
	return l
}

// Start opens an in-progress check run for a commit. Calling it again for
// the same SHA refreshes the existing run instead of creating a second one.
func (r *Reporter) Start(ctx context.Context, headSHA string) error {
	lock := r.lockFor(headSHA)
	lock.Lock()
	defer lock.Unlock()

	opts := github.CheckRunOptions{
		Name:    r.checkName,
		HeadSHA: headSHA,
		Status:  github.StatusInProgress,
	}

	r.mu.Lock()
	id, exists := r.runs[headSHA]
	r.mu.Unlock()
	if exists {
		_, err := r.update(ctx, id, opts)
		return err
	}

	opts.ExternalID = uuid.NewString()
	run, err := r.create(ctx, opts)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.runs[headSHA] = run.ID
	r.mu.Unlock()
	log.Infof("check run %d opened for %s", run.ID, headSHA)
	return nil
}

// HasCheck reports whether a check run is already open for the SHA.
func (r *Reporter) HasCheck(headSHA string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[headSHA]
	return ok
}

// Publish completes the commit's check run with a rendered report. The
// conclusion follows the aggregate pass flag. Create-or-update keyed by
// (headSha, checkName) keeps the call idempotent.
func (r *Reporter) Publish(ctx context.Context, headSHA string, agg *rubric.AggregateResult, drifts []NamedDrift) error {
	rendered := Render(Input{Aggregate: agg, Drifts: drifts})
	conclusion := github.ConclusionFailure
	if agg.OverallPass {
		conclusion = github.ConclusionSuccess
	}
	return r.complete(ctx, headSHA, conclusion, rendered)
}

// PublishNeutral completes an already-open check run with a neutral
// conclusion. When no run is open for the SHA, nothing is published.
func (r *Reporter) PublishNeutral(ctx context.Context, headSHA, reason string) error {
	if !r.HasCheck(headSHA) {
		log.Debugf("no open check for %s, skipping neutral publish", headSHA)
		return nil
	}
	rendered := &Rendered{
		Title:   "Prompt evaluation: skipped",
		Summary: reason,
		Body:    reason,
	}
	return r.complete(ctx, headSHA, github.ConclusionNeutral, rendered)
}

// PublishFailure completes the commit's check run with a failure conclusion
// naming the pipeline stage that broke. A check run must never be left
// in progress or reported successful after an upstream error.
func (r *Reporter) PublishFailure(ctx context.Context, headSHA, stage string, cause error) error {
	rendered := &Rendered{
		Title:   "Prompt evaluation: failed",
		Summary: fmt.Sprintf("The %s stage failed.", stage),
		Body:    fmt.Sprintf("The %s stage failed before a result could be produced.\n\n```\n%v\n```\n", stage, cause),
	}
	return r.complete(ctx, headSHA, github.ConclusionFailure, rendered)
}

// Snapshot returns the most recently published body for a SHA.
func (r *Reporter) Snapshot(headSHA string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	body, ok := r.bodies[headSHA]
	return body, ok
}

func (r *Reporter) complete(ctx context.Context, headSHA string, conclusion github.Conclusion, rendered *Rendered) error {
	lock := r.lockFor(headSHA)
	lock.Lock()
	defer lock.Unlock()

	opts := github.CheckRunOptions{
		Name:       r.checkName,
		Status:     github.StatusCompleted,
		Conclusion: conclusion,
		Output:     rendered.Output(),
	}

	r.mu.Lock()
	id, exists := r.runs[headSHA]
	r.mu.Unlock()

	var run *github.CheckRun
	var err error
	if exists {
		run, err = r.update(ctx, id, opts)
	} else {
		opts.HeadSHA = headSHA
		opts.ExternalID = uuid.NewString()
		run, err = r.create(ctx, opts)
	}
	if err != nil {
		return fmt.Errorf("publish report for %s: %w", headSHA, err)
	}

	r.mu.Lock()
	r.runs[headSHA] = run.ID
	r.bodies[headSHA] = rendered.Body
	r.mu.Unlock()
	log.Infof("check run %d for %s completed %s", run.ID, headSHA, conclusion)
	return nil
}

func (r *Reporter) create(ctx context.Context, opts github.CheckRunOptions) (*github.CheckRun, error) {
	return retryPublish(ctx, func() (*github.CheckRun, error) {
		return r.api.CreateCheckRun(ctx, opts)
	})
}

func (r *Reporter) update(ctx context.Context, id int64, opts github.CheckRunOptions) (*github.CheckRun, error) {
	return retryPublish(ctx, func() (*github.CheckRun, error) {
		return r.api.UpdateCheckRun(ctx, id, opts)
	})
}

// retryPublish runs one publish API call with a single backoff retry.
func retryPublish(ctx context.Context, op func() (*github.CheckRun, error)) (*github.CheckRun, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(publishMaxTries))
}
