//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package report

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptcheck/promptcheck/github"
	"github.com/promptcheck/promptcheck/rubric"
)

type call struct {
	method string
	id     int64
	opts   github.CheckRunOptions
}

type fakeChecksAPI struct {
	mu       sync.Mutex
	calls    []call
	nextID   int64
	failures int
}

func (f *fakeChecksAPI) CreateCheckRun(ctx context.Context, opts github.CheckRunOptions) (*github.CheckRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("temporarily unavailable")
	}
	f.nextID++
	f.calls = append(f.calls, call{method: "create", id: f.nextID, opts: opts})
	return &github.CheckRun{ID: f.nextID, Name: opts.Name, HeadSHA: opts.HeadSHA, Status: opts.Status}, nil
}

func (f *fakeChecksAPI) UpdateCheckRun(ctx context.Context, id int64, opts github.CheckRunOptions) (*github.CheckRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("temporarily unavailable")
	}
	f.calls = append(f.calls, call{method: "update", id: id, opts: opts})
	return &github.CheckRun{ID: id, Name: opts.Name, Status: opts.Status, Conclusion: opts.Conclusion}, nil
}

func (f *fakeChecksAPI) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func passingAggregate() *rubric.AggregateResult {
	return &rubric.AggregateResult{OverallPass: true, Score: 90, Evaluated: 1}
}

func TestStartOpensInProgressCheck(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	require.NoError(t, r.Start(context.Background(), "sha1"))
	calls := api.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "create", calls[0].method)
	assert.Equal(t, DefaultCheckName, calls[0].opts.Name)
	assert.Equal(t, "sha1", calls[0].opts.HeadSHA)
	assert.Equal(t, github.StatusInProgress, calls[0].opts.Status)
	assert.NotEmpty(t, calls[0].opts.ExternalID)
	assert.True(t, r.HasCheck("sha1"))
}

func TestStartTwiceUpdatesInsteadOfDuplicating(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	require.NoError(t, r.Start(context.Background(), "sha1"))
	require.NoError(t, r.Start(context.Background(), "sha1"))

	calls := api.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "create", calls[0].method)
	assert.Equal(t, "update", calls[1].method)
	assert.Equal(t, calls[0].id, calls[1].id)
}

func TestPublishCompletesExistingCheck(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	require.NoError(t, r.Start(context.Background(), "sha1"))
	require.NoError(t, r.Publish(context.Background(), "sha1", passingAggregate(), nil))

	calls := api.snapshot()
	require.Len(t, calls, 2)
	last := calls[1]
	assert.Equal(t, "update", last.method)
	assert.Equal(t, github.StatusCompleted, last.opts.Status)
	assert.Equal(t, github.ConclusionSuccess, last.opts.Conclusion)
	require.NotNil(t, last.opts.Output)
	assert.Contains(t, last.opts.Output.Title, "90/100")
}

func TestPublishWithoutStartCreatesCompletedCheck(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	agg := passingAggregate()
	agg.OverallPass = false
	agg.Score = 55
	require.NoError(t, r.Publish(context.Background(), "sha2", agg, nil))

	calls := api.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "create", calls[0].method)
	assert.Equal(t, "sha2", calls[0].opts.HeadSHA)
	assert.Equal(t, github.ConclusionFailure, calls[0].opts.Conclusion)
}

func TestPublishTwiceOverwrites(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	require.NoError(t, r.Publish(context.Background(), "sha1", passingAggregate(), nil))
	require.NoError(t, r.Publish(context.Background(), "sha1", passingAggregate(), nil))

	calls := api.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "create", calls[0].method)
	assert.Equal(t, "update", calls[1].method)
	assert.Equal(t, calls[0].id, calls[1].id)
}

func TestPublishRetriesOnce(t *testing.T) {
	api := &fakeChecksAPI{failures: 1}
	r := NewReporter(api)

	require.NoError(t, r.Publish(context.Background(), "sha1", passingAggregate(), nil))
	calls := api.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "create", calls[0].method)
}

func TestPublishGivesUpAfterRetry(t *testing.T) {
	api := &fakeChecksAPI{failures: 2}
	r := NewReporter(api)

	err := r.Publish(context.Background(), "sha1", passingAggregate(), nil)
	assert.Error(t, err)
}

func TestPublishNeutralRequiresOpenCheck(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	// No check open: nothing published.
	require.NoError(t, r.PublishNeutral(context.Background(), "sha1", "no prompt artifacts"))
	assert.Empty(t, api.snapshot())

	require.NoError(t, r.Start(context.Background(), "sha1"))
	require.NoError(t, r.PublishNeutral(context.Background(), "sha1", "no prompt artifacts"))
	calls := api.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, github.ConclusionNeutral, calls[1].opts.Conclusion)
}

func TestPublishFailureNamesStage(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	require.NoError(t, r.Start(context.Background(), "sha1"))
	require.NoError(t, r.PublishFailure(context.Background(), "sha1", "retrieval", errors.New("download timed out")))

	calls := api.snapshot()
	require.Len(t, calls, 2)
	last := calls[1]
	assert.Equal(t, github.ConclusionFailure, last.opts.Conclusion)
	assert.Contains(t, last.opts.Output.Summary, "retrieval")
	assert.Contains(t, last.opts.Output.Text, "download timed out")
}

func TestSnapshotReturnsPublishedBody(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	_, ok := r.Snapshot("sha1")
	assert.False(t, ok)

	require.NoError(t, r.Publish(context.Background(), "sha1", passingAggregate(), nil))
	body, ok := r.Snapshot("sha1")
	require.True(t, ok)
	assert.Contains(t, body, "Best practices checklist")
}

func TestWithCheckName(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api, WithCheckName("prompt-gate"))

	require.NoError(t, r.Start(context.Background(), "sha1"))
	assert.Equal(t, "prompt-gate", api.snapshot()[0].opts.Name)
}

func TestConcurrentPublishesSameSHASerialized(t *testing.T) {
	api := &fakeChecksAPI{}
	r := NewReporter(api)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Publish(context.Background(), "sha1", passingAggregate(), nil)
		}()
	}
	wg.Wait()

	calls := api.snapshot()
	require.Len(t, calls, 8)
	// Exactly one create; everything else updated the same run.
	creates := 0
	for _, c := range calls {
		if c.method == "create" {
			creates++
		}
	}
	assert.Equal(t, 1, creates)
}
