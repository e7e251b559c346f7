//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package artifact retrieves prompt artifacts produced by workflow runs and
// extracts evaluable prompt texts from them.
package artifact

import (
	"context"
	"strings"
	"time"
)

// DefaultMaxContentLen is the per-artifact content ceiling in characters.
const DefaultMaxContentLen = 10000

// DefaultKeywords are the artifact-bundle name keywords that mark a bundle
// as relevant. Any single match includes the bundle.
var DefaultKeywords = []string{"prompt", "evaluation", "drift"}

// DefaultTextPatterns are the glob patterns for bundle entries that are read
// into memory. Everything else is drained and discarded.
var DefaultTextPatterns = []string{
	"**/*.txt",
	"**/*.md",
	"**/*.json",
	"**/*.yaml",
	"**/*.yml",
	"**/*.prompt",
}

// Artifact is one text unit extracted from a workflow-run bundle. It is
// immutable and discarded after aggregation; nothing is persisted.
type Artifact struct {
	// Name is the bundle name joined with the entry path.
	Name string
	// Content is the entry text, at most the configured ceiling.
	Content string
	// SourceRunID is the workflow run the bundle belongs to.
	SourceRunID int64
	// SourceArtifactID is the bundle's platform identifier.
	SourceArtifactID int64
	// CreatedAt is the bundle creation time reported by the platform.
	CreatedAt time.Time
}

// Service lists and downloads the artifacts attached to a workflow run.
type Service interface {
	// FetchArtifacts returns every text artifact extracted from the
	// keyword-matching bundles of the given run. A failure to download or
	// unpack one bundle degrades the result set; it does not fail the call.
	FetchArtifacts(ctx context.Context, runID int64) ([]*Artifact, error)
}

// MatchesKeyword reports whether name contains any of the keywords,
// case-insensitively.
func MatchesKeyword(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
