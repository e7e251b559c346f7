//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields a bearer token for API requests.
type TokenSource interface {
	// Token returns a token valid for at least the next request.
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource is a fixed token, e.g. a personal access token in tests
// and local runs.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// appJWTLifetime is the validity window GitHub allows for app JWTs.
const appJWTLifetime = 9 * time.Minute

// tokenRenewalMargin renews installation tokens this long before expiry.
const tokenRenewalMargin = time.Minute

// InstallationTokenSource mints GitHub App installation tokens: it signs a
// short-lived RS256 app JWT and exchanges it for an installation token,
// cached until shortly before expiry.
type InstallationTokenSource struct {
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	baseURL        string
	httpClient     *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// InstallationTokenOption configures an InstallationTokenSource.
type InstallationTokenOption func(*InstallationTokenSource)

// WithTokenBaseURL points token exchange at a different API endpoint.
func WithTokenBaseURL(u string) InstallationTokenOption {
	return func(s *InstallationTokenSource) { s.baseURL = u }
}

// WithTokenHTTPClient overrides the HTTP client used for token exchange.
func WithTokenHTTPClient(hc *http.Client) InstallationTokenOption {
	return func(s *InstallationTokenSource) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// NewInstallationTokenSource parses the app's PEM private key and returns a
// caching token source for the given installation.
func NewInstallationTokenSource(appID, installationID int64, privateKeyPEM []byte, opts ...InstallationTokenOption) (*InstallationTokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}
	s := &InstallationTokenSource{
		appID:          appID,
		installationID: installationID,
		key:            key,
		baseURL:        DefaultBaseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token implements TokenSource.
func (s *InstallationTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires.Add(-tokenRenewalMargin)) {
		return s.token, nil
	}

	appJWT, err := s.signAppJWT()
	if err != nil {
		return "", err
	}
	token, expires, err := s.exchange(ctx, appJWT)
	if err != nil {
		return "", err
	}
	s.token, s.expires = token, expires
	return s.token, nil
}

func (s *InstallationTokenSource) signAppJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		// Backdate issuance to tolerate clock skew against GitHub.
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
		Issuer:    fmt.Sprintf("%d", s.appID),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}

func (s *InstallationTokenSource) exchange(ctx context.Context, appJWT string) (string, time.Time, error) {
	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", s.baseURL, s.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("exchange installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", time.Time{}, newAPIError(resp)
	}
	var payload struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode installation token: %w", err)
	}
	return payload.Token, payload.ExpiresAt, nil
}
