//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package github

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gh "github.com/promptcheck/promptcheck/github"
)

type fakeAPI struct {
	bundles   []gh.RunArtifact
	archives  map[int64][]byte
	listErr   error
	failIDs   map[int64]bool
	downloads atomic.Int64
}

func (f *fakeAPI) ListRunArtifacts(ctx context.Context, runID int64) ([]gh.RunArtifact, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.bundles, nil
}

func (f *fakeAPI) DownloadArtifact(ctx context.Context, artifactID int64) (io.ReadCloser, error) {
	f.downloads.Add(1)
	if f.failIDs[artifactID] {
		return nil, errors.New("blob storage unavailable")
	}
	data, ok := f.archives[artifactID]
	if !ok {
		return nil, errors.New("unknown artifact")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetchArtifactsFiltersAndUnpacks(t *testing.T) {
	api := &fakeAPI{
		bundles: []gh.RunArtifact{
			{ID: 1, Name: "prompt-bundle", CreatedAt: time.Now()},
			{ID: 2, Name: "coverage"},
			{ID: 3, Name: "old-prompts", Expired: true},
		},
		archives: map[int64][]byte{
			1: zipBytes(t, map[string]string{"greeting.txt": "Hello prompt."}),
		},
	}

	r, err := New(api)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.FetchArtifacts(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "prompt-bundle/greeting.txt", got[0].Name)
	assert.Equal(t, "Hello prompt.", got[0].Content)
	assert.Equal(t, int64(42), got[0].SourceRunID)
	assert.Equal(t, int64(1), got[0].SourceArtifactID)
	// The coverage and expired bundles were never downloaded.
	assert.Equal(t, int64(1), api.downloads.Load())
}

func TestFetchArtifactsListFailure(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("rate limited")}
	r, err := New(api)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.FetchArtifacts(context.Background(), 7)
	assert.Error(t, err)
}

func TestFetchArtifactsSkipsBrokenBundle(t *testing.T) {
	api := &fakeAPI{
		bundles: []gh.RunArtifact{
			{ID: 1, Name: "prompt-a"},
			{ID: 2, Name: "prompt-b"},
		},
		archives: map[int64][]byte{
			2: zipBytes(t, map[string]string{"b.txt": "Bravo prompt."}),
		},
		failIDs: map[int64]bool{1: true},
	}

	r, err := New(api)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.FetchArtifacts(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "prompt-b/b.txt", got[0].Name)
}

func TestFetchArtifactsNoMatchingBundles(t *testing.T) {
	api := &fakeAPI{bundles: []gh.RunArtifact{{ID: 1, Name: "coverage"}}}
	r, err := New(api)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.FetchArtifacts(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchArtifactsPreservesBundleOrder(t *testing.T) {
	api := &fakeAPI{
		bundles: []gh.RunArtifact{
			{ID: 1, Name: "prompt-a"},
			{ID: 2, Name: "prompt-b"},
			{ID: 3, Name: "prompt-c"},
		},
		archives: map[int64][]byte{
			1: zipBytes(t, map[string]string{"a.txt": "A"}),
			2: zipBytes(t, map[string]string{"b.txt": "B"}),
			3: zipBytes(t, map[string]string{"c.txt": "C"}),
		},
	}

	r, err := New(api, WithDownloadConcurrency(2))
	require.NoError(t, err)
	defer r.Close()

	got, err := r.FetchArtifacts(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "prompt-a/a.txt", got[0].Name)
	assert.Equal(t, "prompt-b/b.txt", got[1].Name)
	assert.Equal(t, "prompt-c/c.txt", got[2].Name)
}

func TestWithKeywords(t *testing.T) {
	api := &fakeAPI{
		bundles: []gh.RunArtifact{
			{ID: 1, Name: "prompt-bundle"},
			{ID: 2, Name: "custom-bundle"},
		},
		archives: map[int64][]byte{
			2: zipBytes(t, map[string]string{"x.txt": "X"}),
		},
	}

	r, err := New(api, WithKeywords([]string{"custom"}))
	require.NoError(t, err)
	defer r.Close()

	got, err := r.FetchArtifacts(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "custom-bundle/x.txt", got[0].Name)
}
