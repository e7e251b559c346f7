//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Webhook event types promptcheck subscribes to.
const (
	EventCheckSuite  = "check_suite"
	EventWorkflowRun = "workflow_run"
)

// Webhook actions of interest.
const (
	ActionRequested = "requested"
	ActionCompleted = "completed"
)

// ErrBadSignature is returned when a webhook payload fails HMAC validation.
var ErrBadSignature = errors.New("webhook signature mismatch")

// ValidateSignature checks a payload against the X-Hub-Signature-256 header
// value using the shared webhook secret. Payloads must never be trusted
// before this check passes.
func ValidateSignature(payload []byte, signature, secret string) error {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, prefix))
	if err != nil {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// Repository identifies the repository an event belongs to.
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// CheckSuiteEvent is the payload of a check_suite webhook delivery.
type CheckSuiteEvent struct {
	Action     string `json:"action"`
	CheckSuite struct {
		HeadSHA string `json:"head_sha"`
	} `json:"check_suite"`
	Repository   Repository `json:"repository"`
	Installation struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

// WorkflowRunEvent is the payload of a workflow_run webhook delivery.
type WorkflowRunEvent struct {
	Action      string `json:"action"`
	WorkflowRun struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		HeadSHA string `json:"head_sha"`
	} `json:"workflow_run"`
	Repository   Repository `json:"repository"`
	Installation struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

// ParseEvent decodes a validated webhook payload into its typed event.
// Unsubscribed event types return (nil, nil) so callers can acknowledge and
// drop them.
func ParseEvent(eventType string, payload []byte) (any, error) {
	switch eventType {
	case EventCheckSuite:
		var ev CheckSuiteEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return &ev, nil
	case EventWorkflowRun:
		var ev WorkflowRunEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return &ev, nil
	default:
		return nil, nil
	}
}
