package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
)

// MaxBatchDescriptors caps a single suggestions request.
const MaxBatchDescriptors = 500

type suggestRequest struct {
	RawDescriptor string   `json:"raw_descriptor"`
	Descriptors   []string `json:"descriptors"`
}

type suggestResponse struct {
	Suggestions []model.Suggestion `json:"suggestions"`
}

type rulesResponse struct {
	Rules []model.LearnedRule `json:"rules"`
}

type patternsResponse struct {
	Month    model.MonthRef           `json:"month"`
	Patterns []model.RecurringPattern `json:"patterns"`
}

type missingResponse struct {
	Missing []model.MissingRecurringExpense `json:"missing"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// Suggestion sources selectable with ?source=.
const (
	SourceCascade = "cascade"
	SourceHistory = "history"
)

// Suggest handles POST /api/suggestions. The body carries either one
// raw_descriptor or a descriptors batch; suggestions come back in input order.
// ?source=history ranks by the caller's own past transactions instead of the
// learned-rule cascade.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	suggester, err := s.suggesterFor(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req suggestRequest
	if !decode(w, r, &req) {
		return
	}

	descriptors := req.Descriptors
	if req.RawDescriptor != "" {
		descriptors = append([]string{req.RawDescriptor}, descriptors...)
	}
	if len(descriptors) == 0 {
		writeError(w, common.NewUserError("raw_descriptor or descriptors is required", common.ErrInvalidInput))
		return
	}
	if len(descriptors) > MaxBatchDescriptors {
		writeError(w, common.NewUserError(
			fmt.Sprintf("at most %d descriptors per request", MaxBatchDescriptors), common.ErrInvalidInput))
		return
	}

	actor := actorFrom(r.Context())
	resp := suggestResponse{Suggestions: make([]model.Suggestion, len(descriptors))}
	for i, d := range descriptors {
		resp.Suggestions[i] = suggester.Suggest(r.Context(), actor, d)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) suggesterFor(source string) (Suggester, error) {
	switch source {
	case "", SourceCascade:
		return s.suggester, nil
	case SourceHistory:
		if s.history == nil {
			return nil, common.NewUserError("history suggestions are not enabled", common.ErrInvalidInput)
		}
		return s.history, nil
	default:
		return nil, common.NewUserError(fmt.Sprintf("unknown suggestion source %q", source), common.ErrInvalidInput)
	}
}

// RecordFeedback handles POST /api/feedback.
func (s *Server) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req model.FeedbackRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.feedback.RecordFeedback(r.Context(), actorFrom(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListRules handles GET /api/rules. Without a scope query parameter it lists
// the caller's user rules followed by their family's rules.
func (s *Server) ListRules(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, common.NewUserError("limit must be a non-negative integer", common.ErrInvalidInput))
			return
		}
		limit = n
	}

	scopes := []model.Scope{model.ScopeUser}
	if actor.FamilyID != "" {
		scopes = append(scopes, model.ScopeFamily)
	}
	if raw := q.Get("scope"); raw != "" {
		scope, err := model.ParseScope(raw)
		if err != nil {
			writeError(w, common.NewUserError("unknown scope", fmt.Errorf("%w: %w", common.ErrInvalidInput, err)))
			return
		}
		if scope == model.ScopeFamily && actor.FamilyID == "" {
			writeError(w, common.NewUserError("family scope requires a family", common.ErrInvalidInput))
			return
		}
		scopes = []model.Scope{scope}
	}

	resp := rulesResponse{Rules: []model.LearnedRule{}}
	for _, scope := range scopes {
		scopeID := actor.ScopeID(scope)
		rules, err := s.rules.ListRules(r.Context(), service.RuleFilter{
			ScopeType:       &scope,
			ScopeID:         &scopeID,
			CategoryID:      q.Get("category"),
			Limit:           limit,
			IncludeArchived: q.Get("include_archived") == "true",
		})
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Rules = append(resp.Rules, rules...)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ArchiveRule handles DELETE /api/rules/{id}.
func (s *Server) ArchiveRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.feedback.ArchiveRule(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DetectPatterns handles GET /api/recurring/patterns?month=YYYY-MM. Without a
// month it uses the detector's current month and echoes it back.
func (s *Server) DetectPatterns(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())

	ref := s.recurring.CurrentMonth()
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := model.ParseMonthRef(raw)
		if err != nil {
			writeError(w, common.NewUserError("month must be YYYY-MM", fmt.Errorf("%w: %w", common.ErrInvalidInput, err)))
			return
		}
		ref = m
	}

	patterns, err := s.recurring.DetectPatterns(r.Context(), actor.FamilyID, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, patternsResponse{Month: ref, Patterns: patterns})
}

// FindMissing handles GET /api/recurring/missing?month=&year=.
func (s *Server) FindMissing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		writeError(w, common.NewUserError("month must be a number", common.ErrInvalidInput))
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(w, common.NewUserError("year must be a number", common.ErrInvalidInput))
		return
	}

	missing, err := s.recurring.FindMissing(r.Context(), actorFrom(r.Context()).FamilyID, month, year)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, missingResponse{Missing: missing})
}

// Confirm handles PUT /api/recurring/confirmations.
func (s *Server) Confirm(w http.ResponseWriter, r *http.Request) {
	var confirmation model.RecurringConfirmation
	if !decode(w, r, &confirmation) {
		return
	}

	saved, err := s.recurring.Confirm(r.Context(), actorFrom(r.Context()), confirmation)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, common.NewUserError("invalid request body", fmt.Errorf("%w: %w", common.ErrInvalidInput, err)))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		common.LogError(err, "Failed to encode response", nil)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := common.ErrorCode(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		common.LogError(err, "Request failed", nil)
	}

	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    code,
		Message: strings.TrimSpace(common.UserMessage(err)),
	}})
}

func statusFor(code string) int {
	switch code {
	case "unauthenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "invalid_input":
		return http.StatusBadRequest
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
