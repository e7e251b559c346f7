//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckRun(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody CheckRunOptions
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 101, "name": "promptcheck", "head_sha": "abc123", "status": "in_progress"}`)
	}))
	defer srv.Close()

	c := NewClient("octo", "demo", StaticTokenSource("tok"), WithBaseURL(srv.URL))
	run, err := c.CreateCheckRun(context.Background(), CheckRunOptions{
		Name:    "promptcheck",
		HeadSHA: "abc123",
		Status:  StatusInProgress,
	})
	require.NoError(t, err)

	assert.Equal(t, "POST /repos/octo/demo/check-runs", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "abc123", gotBody.HeadSHA)
	assert.Equal(t, int64(101), run.ID)
	assert.Equal(t, StatusInProgress, run.Status)
}

func TestUpdateCheckRun(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		io.WriteString(w, `{"id": 101, "status": "completed", "conclusion": "success"}`)
	}))
	defer srv.Close()

	c := NewClient("octo", "demo", StaticTokenSource("tok"), WithBaseURL(srv.URL))
	run, err := c.UpdateCheckRun(context.Background(), 101, CheckRunOptions{
		Status:     StatusCompleted,
		Conclusion: ConclusionSuccess,
	})
	require.NoError(t, err)
	assert.Equal(t, "PATCH /repos/octo/demo/check-runs/101", gotPath)
	assert.Equal(t, ConclusionSuccess, run.Conclusion)
}

func TestListRunArtifacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/demo/actions/runs/55/artifacts", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		io.WriteString(w, `{"total_count": 2, "artifacts": [
			{"id": 1, "name": "prompt-bundle", "size_in_bytes": 128, "expired": false},
			{"id": 2, "name": "coverage", "size_in_bytes": 64, "expired": true}
		]}`)
	}))
	defer srv.Close()

	c := NewClient("octo", "demo", StaticTokenSource("tok"), WithBaseURL(srv.URL))
	artifacts, err := c.ListRunArtifacts(context.Background(), 55)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "prompt-bundle", artifacts[0].Name)
	assert.True(t, artifacts[1].Expired)
}

func TestDownloadArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/demo/actions/artifacts/9/zip", r.URL.Path)
		io.WriteString(w, "zip-bytes")
	}))
	defer srv.Close()

	c := NewClient("octo", "demo", StaticTokenSource("tok"), WithBaseURL(srv.URL))
	body, err := c.DownloadArtifact(context.Background(), 9)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(data))
}

func TestAPIErrorSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message": "Invalid request"}`)
	}))
	defer srv.Close()

	c := NewClient("octo", "demo", StaticTokenSource("tok"), WithBaseURL(srv.URL))
	_, err := c.CreateCheckRun(context.Background(), CheckRunOptions{Name: "x", HeadSHA: "y"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "Invalid request", apiErr.Message)
}

func TestRequestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, apiVersion, r.Header.Get("X-GitHub-Api-Version"))
		io.WriteString(w, `{"artifacts": []}`)
	}))
	defer srv.Close()

	c := NewClient("octo", "demo", StaticTokenSource("tok"), WithBaseURL(srv.URL))
	_, err := c.ListRunArtifacts(context.Background(), 1)
	require.NoError(t, err)
}
