package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/hupe1980/docmesh/core"
	"github.com/hupe1980/docmesh/runner"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// DocumentationRequest is the body of POST /api/v1/documentation.
type DocumentationRequest struct {
	Topic string         `json:"topic"`
	Mode  string         `json:"mode,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// PlanRequest describes one plan of POST /api/v1/orchestrate.
type PlanRequest struct {
	ID           string        `json:"id,omitempty"`
	AgentID      string        `json:"agent_id"`
	Priority     int           `json:"priority"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Actions      []core.Action `json:"actions,omitempty"`
}

// OrchestrateRequest is the body of POST /api/v1/orchestrate.
type OrchestrateRequest struct {
	Mode  string         `json:"mode"`
	Data  map[string]any `json:"data,omitempty"`
	Plans []PlanRequest  `json:"plans,omitempty"`
}

// OrchestrateResponse is returned by POST /api/v1/orchestrate.
type OrchestrateResponse struct {
	ContextID  string                 `json:"context_id"`
	Mode       core.Mode              `json:"mode"`
	Results    []core.ExecutionResult `json:"results"`
	Evaluation *core.EvaluationResult `json:"evaluation"`
	Usage      core.Usage             `json:"usage"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"agents":   len(s.orch.Agents()),
		"contexts": s.orch.ContextCount(),
	})
}

func (s *Server) listAgents(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"agents": s.orch.AgentInfos()})
}

func (s *Server) generateDocumentation(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.respondError(w, http.StatusServiceUnavailable, "unavailable", "documentation pipeline not configured", nil)
		return
	}

	var req DocumentationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}

	res, err := s.pipeline.Run(r.Context(), runner.Request{Topic: req.Topic, Mode: runner.Mode(req.Mode), Data: req.Data})
	switch {
	case errors.Is(err, runner.ErrPipelineFailed):
		s.respondError(w, http.StatusUnprocessableEntity, "pipeline_failed", err.Error(), res)
	case err != nil:
		s.respondErr(w, err)
	default:
		s.respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) orchestrate(w http.ResponseWriter, r *http.Request) {
	var req OrchestrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body", err.Error())
		return
	}

	mode := core.Mode(req.Mode)
	if mode == "" {
		mode = core.ModeAutonomous
	}
	plans := make([]*core.Plan, 0, len(req.Plans))
	for _, p := range req.Plans {
		plan := core.NewPlan(p.AgentID, p.Priority, p.Actions...)
		if p.ID != "" {
			plan.ID = p.ID
		}
		plan.Dependencies = p.Dependencies
		for i := range plan.Actions {
			if plan.Actions[i].ID == "" {
				plan.Actions[i].ID = core.NewID()
			}
		}
		plans = append(plans, plan)
	}

	rc := s.orch.CreateContext(req.Data, nil)
	results, err := s.orch.Orchestrate(r.Context(), mode, rc, plans)
	if err != nil {
		s.orch.ReleaseContext(rc.ID)
		s.respondErr(w, err)
		return
	}
	evaluation, err := s.orch.Evaluate(r.Context(), results)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, OrchestrateResponse{
		ContextID:  rc.ID,
		Mode:       mode,
		Results:    results,
		Evaluation: evaluation,
		Usage:      rc.Usage(),
	})
}

func (s *Server) getContext(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rc, ok := s.orch.Context(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "not_found", "context not found", map[string]string{"id": id})
		return
	}
	s.respondJSON(w, http.StatusOK, rc.Snapshot())
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", v)
			return
		}
		limit = n
	}

	entries, err := s.orch.History().List(r.Context(), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, details any) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, "status", status, "error", code)
	}
	s.respondJSON(w, status, ErrorResponse{Error: code, Message: message, Details: details})
}

// respondErr maps well-known sentinel errors to HTTP status codes.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	case errors.Is(err, core.ErrMissingCredential):
		s.respondError(w, http.StatusServiceUnavailable, "missing_credential", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusRequestTimeout, "canceled", err.Error(), nil)
	default:
		s.respondError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}
