//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package config loads and validates service configuration. A YAML file
// supplies the explicit settings; secrets come from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/promptcheck/promptcheck/artifact"
	"github.com/promptcheck/promptcheck/rubric"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Environment variables consulted after the file is read. Secrets are never
// placed in the file.
const (
	EnvWebhookSecret = "PROMPTCHECK_WEBHOOK_SECRET"
	EnvGitHubToken   = "GITHUB_TOKEN"
)

// Config is the full service configuration.
type Config struct {
	Server     Server     `yaml:"server"`
	GitHub     GitHub     `yaml:"github"`
	Evaluation Evaluation `yaml:"evaluation"`
	Telemetry  Telemetry  `yaml:"telemetry"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `yaml:"addr"`
}

// GitHub configures platform access. Either Token (a personal access token,
// from the environment) or the App fields must be set.
type GitHub struct {
	BaseURL        string `yaml:"baseURL"`
	Owner          string `yaml:"owner"`
	Repo           string `yaml:"repo"`
	AppID          int64  `yaml:"appID"`
	InstallationID int64  `yaml:"installationID"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
	CheckName      string `yaml:"checkName"`

	// WebhookSecret and Token are environment-sourced.
	WebhookSecret string `yaml:"-"`
	Token         string `yaml:"-"`
}

// Evaluation configures the rubric and retrieval behavior.
type Evaluation struct {
	// Threshold is the pass mark in [0, 100].
	Threshold int `yaml:"threshold"`
	// MaxContentLen is the per-artifact content ceiling in characters.
	MaxContentLen int `yaml:"maxContentLen"`
	// Keywords mark artifact bundles and workflow runs as relevant.
	Keywords []string `yaml:"keywords"`
	// TextPatterns allow-list bundle entries read into memory.
	TextPatterns []string `yaml:"textPatterns"`
	// DownloadConcurrency bounds parallel bundle downloads.
	DownloadConcurrency int `yaml:"downloadConcurrency"`
	// EvalConcurrency sizes the evaluation pool. Zero means NumCPU.
	EvalConcurrency int `yaml:"evalConcurrency"`
	// ArtifactTimeout bounds one bundle download and unpack.
	ArtifactTimeout Duration `yaml:"artifactTimeout"`
	// EventTimeout bounds the handling of one workflow-run event.
	EventTimeout Duration `yaml:"eventTimeout"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"`
}

// Default returns the configuration used when the file omits a setting.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		GitHub: GitHub{CheckName: "promptcheck"},
		Evaluation: Evaluation{
			Threshold:           rubric.DefaultThreshold,
			MaxContentLen:       artifact.DefaultMaxContentLen,
			Keywords:            artifact.DefaultKeywords,
			TextPatterns:        artifact.DefaultTextPatterns,
			DownloadConcurrency: 4,
			ArtifactTimeout:     Duration(30 * time.Second),
			EventTimeout:        Duration(5 * time.Minute),
		},
		Telemetry: Telemetry{Protocol: "grpc"},
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvWebhookSecret); v != "" {
		c.GitHub.WebhookSecret = v
	}
	if v := os.Getenv(EnvGitHubToken); v != "" {
		c.GitHub.Token = v
	}
}

// Validate checks cross-field consistency. It does not require credentials;
// the serve command enforces those at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Evaluation.Threshold < 0 || c.Evaluation.Threshold > 100 {
		errs = append(errs, fmt.Errorf("evaluation.threshold %d outside [0, 100]", c.Evaluation.Threshold))
	}
	if c.Evaluation.MaxContentLen <= 0 {
		errs = append(errs, fmt.Errorf("evaluation.maxContentLen %d must be positive", c.Evaluation.MaxContentLen))
	}
	if c.Evaluation.DownloadConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("evaluation.downloadConcurrency %d must be positive", c.Evaluation.DownloadConcurrency))
	}
	if c.Evaluation.EvalConcurrency < 0 {
		errs = append(errs, fmt.Errorf("evaluation.evalConcurrency %d must not be negative", c.Evaluation.EvalConcurrency))
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("telemetry.protocol %q must be grpc or http", c.Telemetry.Protocol))
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("logLevel %q unknown", c.LogLevel))
	}
	return errors.Join(errs...)
}

// HasAppCredentials reports whether GitHub App authentication is configured.
func (g GitHub) HasAppCredentials() bool {
	return g.AppID != 0 && g.InstallationID != 0 && g.PrivateKeyPath != ""
}
