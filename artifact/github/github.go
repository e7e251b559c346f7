//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package github retrieves workflow-run artifacts through the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/promptcheck/promptcheck/artifact"
	gh "github.com/promptcheck/promptcheck/github"
	"github.com/promptcheck/promptcheck/log"
)

// DefaultDownloadConcurrency bounds parallel bundle downloads to stay
// inside upstream rate limits.
const DefaultDownloadConcurrency = 4

// DefaultArtifactTimeout bounds the download and unpack of one bundle.
const DefaultArtifactTimeout = 30 * time.Second

// API is the slice of the GitHub client the retriever depends on.
type API interface {
	// ListRunArtifacts returns the bundles attached to a workflow run.
	ListRunArtifacts(ctx context.Context, runID int64) ([]gh.RunArtifact, error)
	// DownloadArtifact streams one bundle archive.
	DownloadArtifact(ctx context.Context, artifactID int64) (io.ReadCloser, error)
}

// Retriever implements artifact.Service on top of the GitHub actions API.
type Retriever struct {
	api         API
	keywords    []string
	archiveOpts artifact.ArchiveOptions
	timeout     time.Duration
	pool        *ants.PoolWithFunc
}

type fetchParam struct {
	ctx     context.Context
	meta    gh.RunArtifact
	runID   int64
	results [][]*artifact.Artifact
	idx     int
	wg      *sync.WaitGroup
}

// Option configures a Retriever.
type Option func(*retrieverOptions)

type retrieverOptions struct {
	keywords    []string
	archiveOpts artifact.ArchiveOptions
	concurrency int
	timeout     time.Duration
}

// WithKeywords overrides the bundle-name keyword filter.
func WithKeywords(keywords []string) Option {
	return func(o *retrieverOptions) {
		if len(keywords) > 0 {
			o.keywords = keywords
		}
	}
}

// WithArchiveOptions overrides content ceiling and text allow-list.
func WithArchiveOptions(opts artifact.ArchiveOptions) Option {
	return func(o *retrieverOptions) { o.archiveOpts = opts }
}

// WithDownloadConcurrency bounds the parallel bundle downloads.
func WithDownloadConcurrency(n int) Option {
	return func(o *retrieverOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithArtifactTimeout bounds the download and unpack of one bundle.
func WithArtifactTimeout(d time.Duration) Option {
	return func(o *retrieverOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// New creates a Retriever backed by a bounded download pool.
func New(api API, opt ...Option) (*Retriever, error) {
	opts := &retrieverOptions{
		keywords:    artifact.DefaultKeywords,
		concurrency: DefaultDownloadConcurrency,
		timeout:     DefaultArtifactTimeout,
	}
	for _, o := range opt {
		o(opts)
	}

	r := &Retriever{
		api:         api,
		keywords:    opts.keywords,
		archiveOpts: opts.archiveOpts,
		timeout:     opts.timeout,
	}
	pool, err := ants.NewPoolWithFunc(opts.concurrency, func(args any) {
		param, ok := args.(*fetchParam)
		if !ok {
			panic("artifact fetch pool args type error")
		}
		defer param.wg.Done()
		param.results[param.idx] = r.fetchOne(param.ctx, param.runID, param.meta)
	})
	if err != nil {
		return nil, fmt.Errorf("create artifact fetch pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Close releases the download pool.
func (r *Retriever) Close() {
	r.pool.Release()
}

// FetchArtifacts implements artifact.Service. Bundles whose names match no
// keyword are ignored; per-bundle failures degrade the result set without
// failing the call.
func (r *Retriever) FetchArtifacts(ctx context.Context, runID int64) ([]*artifact.Artifact, error) {
	bundles, err := r.api.ListRunArtifacts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list bundles of run %d: %w", runID, err)
	}

	var selected []gh.RunArtifact
	for _, b := range bundles {
		if b.Expired {
			log.Debugf("bundle %s of run %d expired, skipping", b.Name, runID)
			continue
		}
		if !artifact.MatchesKeyword(b.Name, r.keywords) {
			continue
		}
		selected = append(selected, b)
	}
	if len(selected) == 0 {
		return nil, nil
	}

	results := make([][]*artifact.Artifact, len(selected))
	var wg sync.WaitGroup
	for i, meta := range selected {
		wg.Add(1)
		param := &fetchParam{ctx: ctx, meta: meta, runID: runID, results: results, idx: i, wg: &wg}
		if err := r.pool.Invoke(param); err != nil {
			wg.Done()
			log.Warnf("bundle %s of run %d not scheduled: %v", meta.Name, runID, err)
		}
	}
	wg.Wait()

	var out []*artifact.Artifact
	for _, batch := range results {
		out = append(out, batch...)
	}
	return out, nil
}

// fetchOne downloads and unpacks a single bundle under its own timeout.
// All failures are absorbed here: a broken bundle must not take down its
// siblings.
func (r *Retriever) fetchOne(parent context.Context, runID int64, meta gh.RunArtifact) []*artifact.Artifact {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	body, err := r.api.DownloadArtifact(ctx, meta.ID)
	if err != nil {
		log.Warnf("download bundle %s (run %d): %v", meta.Name, runID, err)
		return nil
	}
	defer body.Close()

	entries, err := artifact.ReadArchive(body, r.archiveOpts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || len(entries) == 0 {
			log.Warnf("unpack bundle %s (run %d): %v", meta.Name, runID, err)
			return nil
		}
		log.Warnf("partial unpack of bundle %s (run %d): %v", meta.Name, runID, err)
	}

	artifacts := make([]*artifact.Artifact, 0, len(entries))
	for _, e := range entries {
		artifacts = append(artifacts, &artifact.Artifact{
			Name:             meta.Name + "/" + e.Name,
			Content:          e.Content,
			SourceRunID:      runID,
			SourceArtifactID: meta.ID,
			CreatedAt:        meta.CreatedAt,
		})
	}
	return artifacts
}
