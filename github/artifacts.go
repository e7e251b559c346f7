//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RunArtifact describes one artifact bundle attached to a workflow run.
type RunArtifact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SizeInBytes int64     `json:"size_in_bytes"`
	Expired     bool      `json:"expired"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListRunArtifacts returns the artifact bundles produced by a workflow run.
func (c *Client) ListRunArtifacts(ctx context.Context, runID int64) ([]RunArtifact, error) {
	var page struct {
		TotalCount int           `json:"total_count"`
		Artifacts  []RunArtifact `json:"artifacts"`
	}
	path := c.repoPath(fmt.Sprintf("/actions/runs/%d/artifacts?per_page=100", runID))
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("list artifacts of run %d: %w", runID, err)
	}
	return page.Artifacts, nil
}

// DownloadArtifact streams an artifact bundle as a zip archive. The caller
// owns the returned reader and must close it.
func (c *Client) DownloadArtifact(ctx context.Context, artifactID int64) (io.ReadCloser, error) {
	path := c.repoPath(fmt.Sprintf("/actions/artifacts/%d/zip", artifactID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	// The API answers with a redirect to short-lived blob storage; the
	// default client follows it.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download artifact %d: %w", artifactID, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, newAPIError(resp)
	}
	return resp.Body, nil
}
