//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptcheck/promptcheck/artifact"
	artifactgithub "github.com/promptcheck/promptcheck/artifact/github"
	"github.com/promptcheck/promptcheck/config"
	"github.com/promptcheck/promptcheck/github"
	"github.com/promptcheck/promptcheck/log"
	"github.com/promptcheck/promptcheck/pipeline"
	"github.com/promptcheck/promptcheck/report"
	"github.com/promptcheck/promptcheck/server"
	"github.com/promptcheck/promptcheck/telemetry"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook service",
	Long: `Starts the HTTP service that receives check_suite and workflow_run
webhooks, evaluates prompt artifacts and publishes check runs.

Secrets come from the environment: ` + config.EnvWebhookSecret + ` for webhook
validation and ` + config.EnvGitHubToken + ` when GitHub App credentials are
not configured.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel)

	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		return errors.New("github.owner and github.repo must be configured")
	}
	if cfg.GitHub.WebhookSecret == "" {
		return fmt.Errorf("%s must be set", config.EnvWebhookSecret)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Start(ctx,
			telemetry.WithEndpoint(cfg.Telemetry.Endpoint),
			telemetry.WithProtocol(cfg.Telemetry.Protocol))
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				log.Warnf("telemetry shutdown: %v", err)
			}
		}()
	}

	tokens, err := tokenSource(cfg.GitHub)
	if err != nil {
		return err
	}
	var clientOpts []github.ClientOption
	if cfg.GitHub.BaseURL != "" {
		clientOpts = append(clientOpts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	client := github.NewClient(cfg.GitHub.Owner, cfg.GitHub.Repo, tokens, clientOpts...)

	retriever, err := artifactgithub.New(client,
		artifactgithub.WithKeywords(cfg.Evaluation.Keywords),
		artifactgithub.WithArchiveOptions(artifact.ArchiveOptions{
			MaxContentLen: cfg.Evaluation.MaxContentLen,
			TextPatterns:  cfg.Evaluation.TextPatterns,
		}),
		artifactgithub.WithDownloadConcurrency(cfg.Evaluation.DownloadConcurrency),
		artifactgithub.WithArtifactTimeout(cfg.Evaluation.ArtifactTimeout.Std()))
	if err != nil {
		return err
	}
	defer retriever.Close()

	reporter := report.NewReporter(client, report.WithCheckName(cfg.GitHub.CheckName))

	pipe, err := pipeline.New(retriever, reporter,
		pipeline.WithThreshold(cfg.Evaluation.Threshold),
		pipeline.WithRunKeywords(cfg.Evaluation.Keywords),
		pipeline.WithEventTimeout(cfg.Evaluation.EventTimeout.Std()),
		pipeline.WithEvalConcurrency(cfg.Evaluation.EvalConcurrency))
	if err != nil {
		return err
	}
	defer pipe.Close()

	srv := server.New(cfg.Server.Addr, cfg.GitHub.WebhookSecret, pipe,
		server.WithSnapshots(reporter))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain server: %w", err)
	}
	return nil
}

// tokenSource builds App-installation auth when configured, otherwise falls
// back to a personal access token.
func tokenSource(g config.GitHub) (github.TokenSource, error) {
	if g.HasAppCredentials() {
		pem, err := os.ReadFile(g.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read app private key: %w", err)
		}
		var opts []github.InstallationTokenOption
		if g.BaseURL != "" {
			opts = append(opts, github.WithTokenBaseURL(g.BaseURL))
		}
		return github.NewInstallationTokenSource(g.AppID, g.InstallationID, pem, opts...)
	}
	if g.Token != "" {
		return github.StaticTokenSource(g.Token), nil
	}
	return nil, fmt.Errorf("either app credentials or %s must be set", config.EnvGitHubToken)
}
