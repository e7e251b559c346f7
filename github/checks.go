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
	"net/http"
)

// CheckStatus is the lifecycle state of a check run.
type CheckStatus string

// Check run statuses.
const (
	StatusQueued     CheckStatus = "queued"
	StatusInProgress CheckStatus = "in_progress"
	StatusCompleted  CheckStatus = "completed"
)

// Conclusion is the terminal outcome of a completed check run.
type Conclusion string

// Check run conclusions.
const (
	ConclusionSuccess Conclusion = "success"
	ConclusionNeutral Conclusion = "neutral"
	ConclusionFailure Conclusion = "failure"
)

// MaxAnnotationsPerRequest is the annotation cap the checks API enforces on
// a single create or update call.
const MaxAnnotationsPerRequest = 50

// Annotation attaches a message to a line range of a file.
type Annotation struct {
	Path            string `json:"path"`
	StartLine       int    `json:"start_line"`
	EndLine         int    `json:"end_line"`
	AnnotationLevel string `json:"annotation_level"`
	Message         string `json:"message"`
	Title           string `json:"title,omitempty"`
}

// CheckOutput is the rendered report attached to a check run.
type CheckOutput struct {
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	Text        string       `json:"text,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// CheckRunOptions is the request body for creating or updating a check run.
type CheckRunOptions struct {
	Name       string       `json:"name"`
	HeadSHA    string       `json:"head_sha,omitempty"`
	Status     CheckStatus  `json:"status,omitempty"`
	Conclusion Conclusion   `json:"conclusion,omitempty"`
	ExternalID string       `json:"external_id,omitempty"`
	Output     *CheckOutput `json:"output,omitempty"`
}

// CheckRun is the API's view of a check run.
type CheckRun struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	HeadSHA    string      `json:"head_sha"`
	Status     CheckStatus `json:"status"`
	Conclusion Conclusion  `json:"conclusion"`
	ExternalID string      `json:"external_id"`
}

// CreateCheckRun creates a check run for a commit.
func (c *Client) CreateCheckRun(ctx context.Context, opts CheckRunOptions) (*CheckRun, error) {
	var run CheckRun
	if err := c.do(ctx, http.MethodPost, c.repoPath("/check-runs"), opts, &run); err != nil {
		return nil, fmt.Errorf("create check run for %s: %w", opts.HeadSHA, err)
	}
	return &run, nil
}

// UpdateCheckRun updates an existing check run in place.
func (c *Client) UpdateCheckRun(ctx context.Context, id int64, opts CheckRunOptions) (*CheckRun, error) {
	var run CheckRun
	path := c.repoPath(fmt.Sprintf("/check-runs/%d", id))
	if err := c.do(ctx, http.MethodPatch, path, opts, &run); err != nil {
		return nil, fmt.Errorf("update check run %d: %w", id, err)
	}
	return &run, nil
}
