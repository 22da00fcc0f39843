package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/swaggo/swag"

	_ "github.com/custodia-labs/quill-core/docs" // registers the swagger doc
	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the database and Redis connections
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Pinger{"database": s.db, "redis": s.redisClient}
	for name, p := range checks {
		if p == nil {
			continue
		}
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, name+" unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "api documentation unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Editing endpoints

// handleApplyProposal godoc
// @Summary      Apply a reviewed proposal
// @Description  Runs every operation of the proposal as one edit group and records a history entry
// @Tags         Editing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string           true  "Document ID"
// @Param        request  body      domain.Proposal  true  "Proposal returned by an action"
// @Success      200      {object}  driving.EditResult
// @Failure      400      {object}  ErrorResponse  "Invalid proposal"
// @Failure      404      {object}  ErrorResponse  "Document or section not found"
// @Failure      409      {object}  ErrorResponse  "Document locked"
// @Router       /documents/{id}/proposals/apply [post]
func (s *Server) handleApplyProposal(w http.ResponseWriter, r *http.Request) {
	var proposal domain.Proposal
	if err := json.NewDecoder(r.Body).Decode(&proposal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.editingService.ApplyProposal(r.Context(), r.PathValue("id"), &proposal)
	if err != nil {
		writeEditError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleUndo godoc
// @Summary      Undo the last command
// @Tags         Editing
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  driving.EditResult
// @Failure      409  {object}  ErrorResponse  "Nothing to undo"
// @Router       /documents/{id}/undo [post]
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	result, err := s.editingService.Undo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRedo godoc
// @Summary      Redo the last undone command
// @Tags         Editing
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  driving.EditResult
// @Failure      409  {object}  ErrorResponse  "Nothing to redo"
// @Router       /documents/{id}/redo [post]
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	result, err := s.editingService.Redo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRollbackGroup godoc
// @Summary      Roll back an edit group
// @Tags         Editing
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string  true  "Document ID"
// @Param        group       path      string  true  "Edit group ID"
// @Param        section_id  query     string  true  "Section ID"
// @Success      200  {object}  driving.EditResult
// @Failure      409  {object}  ErrorResponse  "Unknown group"
// @Router       /documents/{id}/groups/{group}/rollback [post]
func (s *Server) handleRollbackGroup(w http.ResponseWriter, r *http.Request) {
	sectionID := r.URL.Query().Get("section_id")
	if sectionID == "" {
		writeError(w, http.StatusBadRequest, "section_id is required")
		return
	}

	result, err := s.editingService.RollbackGroup(r.Context(), r.PathValue("id"), sectionID, r.PathValue("group"))
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReapplyGroup godoc
// @Summary      Re-apply a rolled back edit group
// @Tags         Editing
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string  true  "Document ID"
// @Param        group       path      string  true  "Edit group ID"
// @Param        section_id  query     string  true  "Section ID"
// @Success      200  {object}  driving.EditResult
// @Failure      409  {object}  ErrorResponse  "Unknown group"
// @Router       /documents/{id}/groups/{group}/reapply [post]
func (s *Server) handleReapplyGroup(w http.ResponseWriter, r *http.Request) {
	sectionID := r.URL.Query().Get("section_id")
	if sectionID == "" {
		writeError(w, http.StatusBadRequest, "section_id is required")
		return
	}

	result, err := s.editingService.ReapplyGroup(r.Context(), r.PathValue("id"), sectionID, r.PathValue("group"))
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHistory godoc
// @Summary      List applied AI proposals
// @Tags         Editing
// @Produce      json
// @Security     BearerAuth
// @Param        id     path   string   true   "Document ID"
// @Param        limit  query  integer  false  "Maximum entries (default 50)"
// @Success      200  {array}  domain.HistoryEntry
// @Router       /documents/{id}/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.editingService.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeEditError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// AI Settings endpoints

// aiSettingsResponse is the AI configuration with API keys masked
type aiSettingsResponse struct {
	Enabled              bool              `json:"enabled"`
	StreamingEnabled     bool              `json:"streaming_enabled"`
	UIVisible            bool              `json:"ui_visible"`
	DefaultTextProvider  domain.ProviderID `json:"default_text_provider"`
	DefaultImageProvider domain.ProviderID `json:"default_image_provider"`
	AllowFallback        bool              `json:"allow_fallback"`
	RequestsPerMinute    int               `json:"requests_per_minute"`
	Providers            []aiProviderInfo  `json:"providers"`
}

// aiProviderInfo represents AI provider configuration status
// @Description AI provider configuration status
type aiProviderInfo struct {
	Provider     domain.ProviderID `json:"provider" example:"openai"`
	Model        string            `json:"model,omitempty" example:"gpt-4o-mini"`
	ImageModel   string            `json:"image_model,omitempty" example:"dall-e-3"`
	BaseURL      string            `json:"base_url,omitempty" example:"https://api.openai.com/v1"`
	HasAPIKey    bool              `json:"has_api_key" example:"true"`
	IsConfigured bool              `json:"is_configured" example:"true"`
}

// handleGetAISettings godoc
// @Summary      Get AI settings
// @Description  Get AI provider configuration (admin only). API keys are masked.
// @Tags         AI Settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  aiSettingsResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /settings/ai [get]
func (s *Server) handleGetAISettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsService.GetAISettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get AI settings")
		return
	}

	resp := aiSettingsResponse{
		Enabled:              settings.Enabled,
		StreamingEnabled:     settings.StreamingEnabled,
		UIVisible:            settings.UIVisible,
		DefaultTextProvider:  settings.DefaultTextProvider,
		DefaultImageProvider: settings.DefaultImageProvider,
		AllowFallback:        settings.AllowFallback,
		RequestsPerMinute:    settings.RequestsPerMinute,
		Providers:            make([]aiProviderInfo, 0, len(settings.Providers)),
	}
	for _, p := range settings.Providers {
		resp.Providers = append(resp.Providers, aiProviderInfo{
			Provider:     p.Provider,
			Model:        p.Model,
			ImageModel:   p.ImageModel,
			BaseURL:      p.BaseURL,
			HasAPIKey:    p.APIKey != "",
			IsConfigured: p.IsConfigured(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUpdateAISettings godoc
// @Summary      Update AI settings
// @Description  Update AI provider configuration (admin only). This triggers hot-reload of the provider registry.
// @Tags         AI Settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.UpdateAISettingsRequest  true  "AI settings to update"
// @Success      200      {object}  driving.AISettingsStatus
// @Failure      400      {object}  ErrorResponse  "Invalid configuration or unsupported provider"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /settings/ai [put]
func (s *Server) handleUpdateAISettings(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.UpdateAISettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.settingsService.UpdateAISettings(r.Context(), authCtx.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidProvider):
			writeError(w, http.StatusBadRequest, "unsupported AI provider")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("update AI settings: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update AI settings")
		}
		return
	}

	// Status carries the raw settings; keys never leave the server
	status.Settings = nil
	writeJSON(w, http.StatusOK, status)
}

// handleGetAIStatus godoc
// @Summary      Get AI status
// @Description  Get the availability of each configured provider
// @Tags         AI Settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driving.AISettingsStatus
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /settings/ai/status [get]
func (s *Server) handleGetAIStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.settingsService.GetAIStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get AI status")
		return
	}
	status.Settings = nil
	writeJSON(w, http.StatusOK, status)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeEditError maps editing errors to status codes
func writeEditError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsEditConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSectionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrGroupMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("edit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "edit failed")
	}
}
