// Package api exposes the categorization engine, the learning pipeline and the
// recurring-expense detector as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/config"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
)

// Identity headers set by the authenticating proxy in front of the API.
const (
	HeaderUserID   = "X-User-ID"
	HeaderFamilyID = "X-Family-ID"
)

// Suggester produces categorization suggestions.
type Suggester interface {
	Suggest(ctx context.Context, actor model.Actor, rawDescriptor string) model.Suggestion
}

// FeedbackService records corrections and manages the rules they create.
type FeedbackService interface {
	RecordFeedback(ctx context.Context, actor model.Actor, req model.FeedbackRequest) (model.FeedbackResult, error)
	ArchiveRule(ctx context.Context, actor model.Actor, ruleID string) error
}

// RuleLister lists learned rules.
type RuleLister interface {
	ListRules(ctx context.Context, filter service.RuleFilter) ([]model.LearnedRule, error)
}

// RecurringService detects recurring expenses and records their resolutions.
type RecurringService interface {
	CurrentMonth() model.MonthRef
	DetectPatterns(ctx context.Context, familyID string, ref model.MonthRef) ([]model.RecurringPattern, error)
	FindMissing(ctx context.Context, familyID string, month, year int) ([]model.MissingRecurringExpense, error)
	Confirm(ctx context.Context, actor model.Actor, confirmation model.RecurringConfirmation) (*model.RecurringConfirmation, error)
}

// Deps contains all dependencies required by the server. History is optional;
// without it requests for history suggestions are rejected.
type Deps struct {
	Suggester Suggester
	History   Suggester
	Feedback  FeedbackService
	Rules     RuleLister
	Recurring RecurringService
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Suggester == nil {
		return fmt.Errorf("suggester dependency is required")
	}
	if d.Feedback == nil {
		return fmt.Errorf("feedback dependency is required")
	}
	if d.Rules == nil {
		return fmt.Errorf("rules dependency is required")
	}
	if d.Recurring == nil {
		return fmt.Errorf("recurring dependency is required")
	}
	return nil
}

// Server represents the API server.
type Server struct {
	router    *mux.Router
	suggester Suggester
	history   Suggester
	feedback  FeedbackService
	rules     RuleLister
	recurring RecurringService
}

// NewServer creates a new API server with its routes registered.
func NewServer(deps Deps) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	s := &Server{
		router:    mux.NewRouter(),
		suggester: deps.Suggester,
		history:   deps.History,
		feedback:  deps.Feedback,
		rules:     deps.Rules,
		recurring: deps.Recurring,
	}
	s.RegisterRoutes()
	return s, nil
}

// RegisterRoutes registers all API routes.
func (s *Server) RegisterRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(authenticate)

	api.HandleFunc("/suggestions", s.Suggest).Methods(http.MethodPost)
	api.HandleFunc("/feedback", s.RecordFeedback).Methods(http.MethodPost)

	api.HandleFunc("/rules", s.ListRules).Methods(http.MethodGet)
	api.HandleFunc("/rules/{id}", s.ArchiveRule).Methods(http.MethodDelete)

	api.HandleFunc("/recurring/patterns", s.DetectPatterns).Methods(http.MethodGet)
	api.HandleFunc("/recurring/missing", s.FindMissing).Methods(http.MethodGet)
	api.HandleFunc("/recurring/confirmations", s.Confirm).Methods(http.MethodPut)
}

// Handler returns the HTTP handler for the API server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the API on cfg.Address until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		common.LogInfo("API server listening", common.Fields{"address": cfg.Address})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	common.LogInfo("Shutting down API server", nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
