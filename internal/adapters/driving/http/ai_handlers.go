package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
)

// actionRequest is the body of an action invocation
// @Description AI action invocation
type actionRequest struct {
	SectionID string            `json:"section_id" example:"sec-1"`
	Selection domain.Selection  `json:"selection"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// failureResponse is returned when the pipeline refuses a request
// @Description Structured refusal
type failureResponse struct {
	Error   string             `json:"error" example:"rate limit reached"`
	Code    domain.FailureCode `json:"code" example:"ai.rate_limited"`
	Message string             `json:"message" example:"rate limit reached"`
}

// handleListActions godoc
// @Summary      List AI actions
// @Tags         AI
// @Produce      json
// @Success      200  {array}  driving.ActionInfo
// @Router       /actions [get]
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.aiService.Actions())
}

// handleListProviders godoc
// @Summary      List AI providers
// @Tags         AI
// @Produce      json
// @Success      200  {array}  domain.ProviderInfo
// @Router       /providers [get]
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.aiService.Providers()
	if providers == nil {
		providers = []domain.ProviderInfo{}
	}
	writeJSON(w, http.StatusOK, providers)
}

// handleExecuteAction godoc
// @Summary      Run an AI action
// @Description  Runs the action on the batch path and returns a proposal for review
// @Tags         AI
// @Accept       json
// @Produce      json
// @Param        id       path      string         true  "Document ID"
// @Param        action   path      string         true  "Action ID"
// @Param        request  body      actionRequest  true  "Target and inputs"
// @Success      200      {object}  driving.ActionOutcome
// @Failure      401      {object}  failureResponse  "auth.required"
// @Failure      403      {object}  failureResponse  "ai.disabled, ai.blocked"
// @Failure      429      {object}  failureResponse  "ai.rate_limited, ai.quota_exceeded"
// @Failure      502      {object}  ErrorResponse    "Provider failure"
// @Failure      503      {object}  failureResponse  "ai.provider_unavailable"
// @Router       /documents/{id}/actions/{action} [post]
func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	actionID, input, ok := s.decodeAction(w, r)
	if !ok {
		return
	}

	outcome, err := s.aiService.ExecuteAction(r.Context(), actionID, input)
	if err != nil {
		writeActionError(w, actionID, err)
		return
	}
	if outcome.Failure != nil {
		writeFailure(w, outcome.Failure)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// handleStreamAction godoc
// @Summary      Stream an AI action
// @Description  Runs the action and streams events as server-sent events. Refusals are returned before the stream opens.
// @Tags         AI
// @Accept       json
// @Produce      text/event-stream
// @Param        id       path  string         true  "Document ID"
// @Param        action   path  string         true  "Action ID"
// @Param        request  body  actionRequest  true  "Target and inputs"
// @Success      200
// @Failure      400  {object}  ErrorResponse    "Invalid selection"
// @Failure      403  {object}  failureResponse
// @Failure      404  {object}  ErrorResponse    "Document or section not found"
// @Failure      429  {object}  failureResponse
// @Router       /documents/{id}/actions/{action}/stream [post]
func (s *Server) handleStreamAction(w http.ResponseWriter, r *http.Request) {
	actionID, input, ok := s.decodeAction(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)

	stream, failure, err := s.aiService.StreamAction(r.Context(), actionID, input)
	if err != nil {
		writeActionError(w, actionID, err)
		return
	}
	if failure != nil {
		writeFailure(w, failure)
		return
	}
	defer stream.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	events := stream.Events()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}
}

func (s *Server) decodeAction(w http.ResponseWriter, r *http.Request) (domain.ActionID, driving.ActionInput, bool) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", driving.ActionInput{}, false
	}
	if req.SectionID == "" {
		writeError(w, http.StatusBadRequest, "section_id is required")
		return "", driving.ActionInput{}, false
	}
	if !req.Selection.Valid() {
		writeError(w, http.StatusBadRequest, "invalid selection")
		return "", driving.ActionInput{}, false
	}

	return domain.ActionID(r.PathValue("action")), driving.ActionInput{
		Auth:       GetAuthContext(r.Context()),
		DocumentID: r.PathValue("id"),
		SectionID:  req.SectionID,
		Selection:  req.Selection,
		Inputs:     req.Inputs,
		Options:    req.Options,
	}, true
}

func writeActionError(w http.ResponseWriter, actionID domain.ActionID, err error) {
	var providerErr *domain.ProviderError
	switch {
	case errors.As(err, &providerErr):
		writeError(w, http.StatusBadGateway, providerErr.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSectionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("action %s failed: %v", actionID, err)
		writeError(w, http.StatusInternalServerError, "action failed")
	}
}

func writeEvent(w http.ResponseWriter, ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}

func writeFailure(w http.ResponseWriter, f *domain.Failure) {
	writeJSON(w, failureStatus(f.Code), failureResponse{
		Error:   f.Message,
		Code:    f.Code,
		Message: f.Message,
	})
}

// failureStatus maps a failure code to its HTTP status
func failureStatus(code domain.FailureCode) int {
	switch code {
	case domain.CodeRateLimited, domain.CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.CodeAuthRequired:
		return http.StatusUnauthorized
	case domain.CodeActionMissing:
		return http.StatusNotFound
	case domain.CodeProviderUnavailable, domain.CodeProviderMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusForbidden
	}
}
