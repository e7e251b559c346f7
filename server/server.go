//
// Copyright (C) 2026 The promptcheck Authors. All rights reserved.
//
// promptcheck is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the webhook endpoint and the debug surface over
// HTTP.
package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/yuin/goldmark"

	"github.com/promptcheck/promptcheck/github"
	"github.com/promptcheck/promptcheck/log"
	"github.com/promptcheck/promptcheck/report"
)

// maxWebhookBody caps accepted webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// Handler dispatches validated webhook events. Implementations must be safe
// for concurrent use.
type Handler interface {
	HandleCheckSuite(ctx context.Context, ev *github.CheckSuiteEvent) error
	HandleWorkflowRun(ctx context.Context, ev *github.WorkflowRunEvent) error
}

// Snapshotter returns the most recent published report body for a SHA.
type Snapshotter interface {
	Snapshot(headSHA string) (string, bool)
}

// Server is the HTTP front of the service.
type Server struct {
	addr          string
	webhookSecret string
	handler       Handler
	snapshots     Snapshotter
	router        *mux.Router
	httpServer    *http.Server

	// dispatch runs an accepted event. Swapped in tests to run inline.
	dispatch func(fn func())
}

// Option configures the Server.
type Option func(*Server)

// WithSnapshots enables the report preview endpoint.
func WithSnapshots(s Snapshotter) Option {
	return func(srv *Server) { srv.snapshots = s }
}

// New creates a Server listening on addr once Start is called. Events are
// processed asynchronously after the delivery is acknowledged.
func New(addr, webhookSecret string, handler Handler, opts ...Option) *Server {
	s := &Server{
		addr:          addr,
		webhookSecret: webhookSecret,
		handler:       handler,
		router:        mux.NewRouter(),
		dispatch:      func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/reports/{sha}", s.handleReportPreview).Methods(http.MethodGet)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve %s: %w", s.addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleWebhook validates the delivery signature, decodes the event and
// schedules processing. The delivery is acknowledged with 202 before the
// pipeline runs so slow evaluations never stall webhook redelivery.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if err := github.ValidateSignature(body, signature, s.webhookSecret); err != nil {
		log.Warnf("webhook signature rejected: %v", err)
		http.Error(w, "bad signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	event, err := github.ParseEvent(eventType, body)
	if err != nil {
		log.Warnf("webhook payload rejected: %v", err)
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if event == nil {
		// Subscribed at the app level but not handled here.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	deliveryID := r.Header.Get("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	log.Infof("accepted %s delivery %s", eventType, deliveryID)

	s.dispatch(func() {
		ctx := context.Background()
		var err error
		switch ev := event.(type) {
		case *github.CheckSuiteEvent:
			err = s.handler.HandleCheckSuite(ctx, ev)
		case *github.WorkflowRunEvent:
			err = s.handler.HandleWorkflowRun(ctx, ev)
		}
		if err != nil {
			log.Errorf("delivery %s failed: %v", deliveryID, err)
		}
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// handleReportPreview renders the last published report body for a SHA to
// HTML for local inspection.
func (s *Server) handleReportPreview(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		http.Error(w, "report preview disabled", http.StatusNotFound)
		return
	}
	sha := mux.Vars(r)["sha"]
	body, ok := s.snapshots.Snapshot(sha)
	if !ok {
		http.Error(w, "no report published for this sha", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// Ensure the reporter satisfies the preview interface.
var _ Snapshotter = (*report.Reporter)(nil)
