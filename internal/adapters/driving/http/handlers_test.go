package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

type mockAIService struct {
	executeFn func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (*driving.ActionOutcome, error)
	streamFn  func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (driving.ActionStream, *domain.Failure, error)
	actions   []driving.ActionInfo
	providers []domain.ProviderInfo
}

func (m *mockAIService) ExecuteAction(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (*driving.ActionOutcome, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, actionID, input)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAIService) StreamAction(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (driving.ActionStream, *domain.Failure, error) {
	if m.streamFn != nil {
		return m.streamFn(ctx, actionID, input)
	}
	return nil, domain.NewFailure(domain.CodeBlocked, "not implemented"), nil
}

func (m *mockAIService) Actions() []driving.ActionInfo { return m.actions }

func (m *mockAIService) Providers() []domain.ProviderInfo { return m.providers }

// fakeStream replays a fixed event sequence
type fakeStream struct {
	events    chan domain.StreamEvent
	cancelled bool
}

func newFakeStream(events ...domain.StreamEvent) *fakeStream {
	ch := make(chan domain.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &fakeStream{events: ch}
}

func (s *fakeStream) Events() <-chan domain.StreamEvent { return s.events }

func (s *fakeStream) Wait(ctx context.Context) (*domain.Proposal, error) { return nil, nil }

func (s *fakeStream) Cancel() { s.cancelled = true }

type mockEditingService struct {
	applyFn    func(ctx context.Context, documentID string, proposal *domain.Proposal) (*driving.EditResult, error)
	undoFn     func(ctx context.Context, documentID string) (*driving.EditResult, error)
	redoFn     func(ctx context.Context, documentID string) (*driving.EditResult, error)
	rollbackFn func(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error)
	reapplyFn  func(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error)
	historyFn  func(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error)
}

func (m *mockEditingService) ApplyProposal(ctx context.Context, documentID string, proposal *domain.Proposal) (*driving.EditResult, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, documentID, proposal)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEditingService) Undo(ctx context.Context, documentID string) (*driving.EditResult, error) {
	if m.undoFn != nil {
		return m.undoFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEditingService) Redo(ctx context.Context, documentID string) (*driving.EditResult, error) {
	if m.redoFn != nil {
		return m.redoFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEditingService) RollbackGroup(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error) {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx, documentID, sectionID, groupID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEditingService) ReapplyGroup(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error) {
	if m.reapplyFn != nil {
		return m.reapplyFn(ctx, documentID, sectionID, groupID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEditingService) History(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, documentID, limit)
	}
	return nil, errors.New("not implemented")
}

type mockSettingsService struct {
	getAISettingsFn    func(ctx context.Context) (*domain.AISettings, error)
	updateAISettingsFn func(ctx context.Context, updaterID string, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error)
	getAIStatusFn      func(ctx context.Context) (*driving.AISettingsStatus, error)
}

func (m *mockSettingsService) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	if m.getAISettingsFn != nil {
		return m.getAISettingsFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSettingsService) UpdateAISettings(ctx context.Context, updaterID string, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
	if m.updateAISettingsFn != nil {
		return m.updateAISettingsFn(ctx, updaterID, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSettingsService) GetAIStatus(ctx context.Context) (*driving.AISettingsStatus, error) {
	if m.getAIStatusFn != nil {
		return m.getAIStatusFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSettingsService) Reload(ctx context.Context) (*driving.AISettingsStatus, error) {
	return m.GetAIStatus(ctx)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// testAuth accepts "admin-token" and "member-token"
func testAuth() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			switch token {
			case "admin-token":
				return &domain.AuthContext{UserID: "admin-1", Role: domain.RoleAdmin, TeamID: "team-1"}, nil
			case "member-token":
				return &domain.AuthContext{UserID: "user-1", Role: domain.RoleMember, TeamID: "team-1"}, nil
			}
			return nil, domain.ErrTokenInvalid
		},
	}
}

func newTestServer(ai *mockAIService, editing *mockEditingService, settings *mockSettingsService) *Server {
	if ai == nil {
		ai = &mockAIService{}
	}
	if editing == nil {
		editing = &mockEditingService{}
	}
	if settings == nil {
		settings = &mockSettingsService{}
	}
	return NewServer(DefaultConfig(), testAuth(), ai, editing, settings, nil, nil)
}

func doRequest(s *Server, method, path, token string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

// Health

func TestHealthHandler(t *testing.T) {
	server := &Server{version: "test"}

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	server.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("expected status 'ok', got %s", response["status"])
	}
}

func TestReadyHandler(t *testing.T) {
	server := &Server{version: "test", db: &mockPinger{}, redisClient: &mockPinger{}}

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	server.handleReady(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ready" {
		t.Errorf("expected status 'ready', got %s", response["status"])
	}
}

func TestReadyHandler_DatabaseDown(t *testing.T) {
	server := &Server{version: "test", db: &mockPinger{err: errors.New("connection refused")}}

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	server.handleReady(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	req := httptest.NewRequest("GET", "/version", nil)
	rr := httptest.NewRecorder()

	server.handleVersion(rr, req)

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["version"] != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %s", response["version"])
	}
}

func TestSwaggerDoc(t *testing.T) {
	rr := doRequest(newTestServer(nil, nil, nil), "GET", "/swagger/doc.json", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Error("expected paths in swagger doc")
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]string{"foo": "bar"})

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", response.Error)
	}
}

func TestFailureStatus(t *testing.T) {
	tests := []struct {
		code domain.FailureCode
		want int
	}{
		{domain.CodeRateLimited, http.StatusTooManyRequests},
		{domain.CodeQuotaExceeded, http.StatusTooManyRequests},
		{domain.CodeAuthRequired, http.StatusUnauthorized},
		{domain.CodeActionMissing, http.StatusNotFound},
		{domain.CodeProviderUnavailable, http.StatusServiceUnavailable},
		{domain.CodeProviderMissing, http.StatusServiceUnavailable},
		{domain.CodeDisabled, http.StatusForbidden},
		{domain.CodeCoverDisabled, http.StatusForbidden},
		{domain.CodeBlocked, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := failureStatus(tt.code); got != tt.want {
				t.Errorf("failureStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWriteEditError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nothing to undo", domain.ErrNothingToUndo, http.StatusConflict},
		{"locked", fmt.Errorf("apply: %w", domain.ErrDocumentLocked), http.StatusConflict},
		{"unknown group", domain.ErrGroupNotFound, http.StatusConflict},
		{"document missing", domain.ErrNotFound, http.StatusNotFound},
		{"section missing", domain.ErrSectionNotFound, http.StatusNotFound},
		{"invalid", domain.ErrInvalidInput, http.StatusBadRequest},
		{"unknown field", domain.ErrUnknownField, http.StatusBadRequest},
		{"group mismatch", domain.ErrGroupMismatch, http.StatusBadRequest},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeEditError(rr, tt.err)
			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

// AI actions

func TestListActions(t *testing.T) {
	ai := &mockAIService{actions: []driving.ActionInfo{{ID: "rewrite", Name: "Rewrite"}}}
	rr := doRequest(newTestServer(ai, nil, nil), "GET", "/api/v1/actions", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var actions []driving.ActionInfo
	if err := json.NewDecoder(rr.Body).Decode(&actions); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(actions) != 1 || actions[0].ID != "rewrite" {
		t.Errorf("unexpected actions: %+v", actions)
	}
}

func TestListProviders_Empty(t *testing.T) {
	rr := doRequest(newTestServer(nil, nil, nil), "GET", "/api/v1/providers", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}
}

func TestExecuteAction_Success(t *testing.T) {
	var got driving.ActionInput
	var gotAction domain.ActionID
	ai := &mockAIService{
		executeFn: func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (*driving.ActionOutcome, error) {
			gotAction, got = actionID, input
			return &driving.ActionOutcome{
				Proposal: &domain.Proposal{
					ID:        "prop-1",
					SectionID: input.SectionID,
					Operations: []domain.Operation{
						domain.ReplaceRangeOp{SectionID: input.SectionID, Start: 0, Length: 5, Text: "Hi"},
					},
				},
				ProviderID: domain.ProviderMock,
			}, nil
		},
	}
	body := `{"section_id":"sec-1","selection":{"start":0,"length":5},"inputs":{"tone":"formal"}}`

	rr := doRequest(newTestServer(ai, nil, nil), "POST", "/api/v1/documents/doc-1/actions/rewrite", "member-token", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotAction != "rewrite" {
		t.Errorf("expected action rewrite, got %s", gotAction)
	}
	if got.DocumentID != "doc-1" || got.SectionID != "sec-1" {
		t.Errorf("unexpected target: %+v", got)
	}
	if got.Selection.Length != 5 || got.Inputs["tone"] != "formal" {
		t.Errorf("unexpected selection or inputs: %+v", got)
	}
	if got.Auth == nil || got.Auth.UserID != "user-1" {
		t.Errorf("expected auth context to be forwarded, got %+v", got.Auth)
	}

	var outcome driving.ActionOutcome
	if err := json.NewDecoder(rr.Body).Decode(&outcome); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if outcome.Proposal == nil || len(outcome.Proposal.Operations) != 1 {
		t.Fatalf("expected proposal with one operation, got %+v", outcome.Proposal)
	}
	if _, ok := outcome.Proposal.Operations[0].(domain.ReplaceRangeOp); !ok {
		t.Errorf("expected ReplaceRangeOp, got %T", outcome.Proposal.Operations[0])
	}
}

func TestExecuteAction_Anonymous(t *testing.T) {
	ai := &mockAIService{
		executeFn: func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (*driving.ActionOutcome, error) {
			if input.Auth != nil {
				t.Error("expected no auth context")
			}
			return &driving.ActionOutcome{Failure: domain.NewFailure(domain.CodeAuthRequired, "sign in to use this provider")}, nil
		},
	}
	body := `{"section_id":"sec-1","selection":{"start":0,"length":0}}`

	rr := doRequest(newTestServer(ai, nil, nil), "POST", "/api/v1/documents/doc-1/actions/rewrite", "", body)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestExecuteAction_Refused(t *testing.T) {
	ai := &mockAIService{
		executeFn: func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (*driving.ActionOutcome, error) {
			return &driving.ActionOutcome{Failure: domain.NewFailure(domain.CodeRateLimited, "rate limit reached")}, nil
		},
	}
	body := `{"section_id":"sec-1","selection":{"start":0,"length":0}}`

	rr := doRequest(newTestServer(ai, nil, nil), "POST", "/api/v1/documents/doc-1/actions/rewrite", "member-token", body)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
	var response failureResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != domain.CodeRateLimited {
		t.Errorf("expected code %s, got %s", domain.CodeRateLimited, response.Code)
	}
}

func TestExecuteAction_ProviderError(t *testing.T) {
	ai := &mockAIService{
		executeFn: func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (*driving.ActionOutcome, error) {
			return nil, domain.NewProviderError(domain.ProviderOpenAI, errors.New("upstream timeout"))
		},
	}
	body := `{"section_id":"sec-1","selection":{"start":0,"length":0}}`

	rr := doRequest(newTestServer(ai, nil, nil), "POST", "/api/v1/documents/doc-1/actions/rewrite", "member-token", body)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rr.Code)
	}
}

func TestExecuteAction_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing section", `{"selection":{"start":0,"length":1}}`},
		{"negative selection", `{"section_id":"sec-1","selection":{"start":-1,"length":1}}`},
	}

	server := newTestServer(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(server, "POST", "/api/v1/documents/doc-1/actions/rewrite", "member-token", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestExecuteAction_InvalidToken(t *testing.T) {
	body := `{"section_id":"sec-1","selection":{"start":0,"length":0}}`
	rr := doRequest(newTestServer(nil, nil, nil), "POST", "/api/v1/documents/doc-1/actions/rewrite", "forged", body)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestStreamAction_Events(t *testing.T) {
	stream := newFakeStream(
		domain.StreamEvent{Kind: domain.StreamStarted, RequestID: "req-1"},
		domain.StreamEvent{Kind: domain.StreamTextDelta, RequestID: "req-1", Text: "Hel"},
		domain.StreamEvent{Kind: domain.StreamTextDelta, RequestID: "req-1", Text: "lo"},
		domain.StreamEvent{Kind: domain.StreamCompleted, RequestID: "req-1"},
	)
	ai := &mockAIService{
		streamFn: func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (driving.ActionStream, *domain.Failure, error) {
			return stream, nil, nil
		},
	}
	body := `{"section_id":"sec-1","selection":{"start":0,"length":0}}`

	rr := doRequest(newTestServer(ai, nil, nil), "POST", "/api/v1/documents/doc-1/actions/continue/stream", "member-token", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", ct)
	}
	if !rr.Flushed {
		t.Error("expected events to be flushed")
	}

	frames := strings.Split(strings.TrimSpace(rr.Body.String()), "\n\n")
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d: %q", len(frames), rr.Body.String())
	}
	if !strings.HasPrefix(frames[1], "event: text_delta\ndata: ") {
		t.Errorf("unexpected frame: %q", frames[1])
	}
	var ev domain.StreamEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "event: text_delta\ndata: ")), &ev); err != nil {
		t.Fatalf("frame data is not JSON: %v", err)
	}
	if ev.Text != "Hel" {
		t.Errorf("expected delta 'Hel', got %q", ev.Text)
	}
	if !strings.HasPrefix(frames[3], "event: completed") {
		t.Errorf("expected terminal completed frame, got %q", frames[3])
	}
	if !stream.cancelled {
		t.Error("expected stream to be released after the handler returns")
	}
}

func TestStreamAction_Refused(t *testing.T) {
	ai := &mockAIService{
		streamFn: func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (driving.ActionStream, *domain.Failure, error) {
			return nil, domain.NewFailure(domain.CodeDisabled, "AI is disabled"), nil
		},
	}
	body := `{"section_id":"sec-1","selection":{"start":0,"length":0}}`

	rr := doRequest(newTestServer(ai, nil, nil), "POST", "/api/v1/documents/doc-1/actions/continue/stream", "member-token", body)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON refusal, got %s", ct)
	}
}

func TestStreamAction_SetupErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing document", fmt.Errorf("load document doc-1: %w", domain.ErrNotFound), http.StatusNotFound},
		{"missing section", fmt.Errorf("%w: sec-9", domain.ErrSectionNotFound), http.StatusNotFound},
		{"invalid selection", fmt.Errorf("%w: selection out of range", domain.ErrInvalidInput), http.StatusBadRequest},
	}
	body := `{"section_id":"sec-1","selection":{"start":0,"length":0}}`

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &mockAIService{
				streamFn: func(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (driving.ActionStream, *domain.Failure, error) {
					return nil, nil, tt.err
				},
			}

			rr := doRequest(newTestServer(ai, nil, nil), "POST", "/api/v1/documents/doc-1/actions/continue/stream", "member-token", body)

			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error before the stream opens, got %s", ct)
			}
		})
	}
}

// Editing

func TestEditRoutes_RequireAuth(t *testing.T) {
	server := newTestServer(nil, nil, nil)
	routes := []struct{ method, path string }{
		{"POST", "/api/v1/documents/doc-1/proposals/apply"},
		{"POST", "/api/v1/documents/doc-1/undo"},
		{"POST", "/api/v1/documents/doc-1/redo"},
		{"POST", "/api/v1/documents/doc-1/groups/g-1/rollback?section_id=s"},
		{"POST", "/api/v1/documents/doc-1/groups/g-1/reapply?section_id=s"},
		{"GET", "/api/v1/documents/doc-1/history"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rr := doRequest(server, route.method, route.path, "", "")
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rr.Code)
			}
		})
	}
}

func TestApplyProposal_Success(t *testing.T) {
	var got *domain.Proposal
	editing := &mockEditingService{
		applyFn: func(ctx context.Context, documentID string, proposal *domain.Proposal) (*driving.EditResult, error) {
			got = proposal
			return &driving.EditResult{Document: &domain.Document{ID: documentID}, GroupID: "g-1", Commands: 1, CanUndo: true}, nil
		},
	}
	body := `{"id":"prop-1","section_id":"sec-1","operations":[{"kind":"replace_range","op":{"section_id":"sec-1","start":0,"length":5,"text":"Hello"}}]}`

	rr := doRequest(newTestServer(nil, editing, nil), "POST", "/api/v1/documents/doc-1/proposals/apply", "member-token", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got == nil || len(got.Operations) != 1 {
		t.Fatalf("expected decoded proposal with one operation, got %+v", got)
	}
	op, ok := got.Operations[0].(domain.ReplaceRangeOp)
	if !ok || op.Text != "Hello" {
		t.Errorf("unexpected operation: %#v", got.Operations[0])
	}

	var result driving.EditResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.GroupID != "g-1" || !result.CanUndo {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestApplyProposal_UnknownOperation(t *testing.T) {
	body := `{"id":"prop-1","operations":[{"kind":"delete_everything","op":{}}]}`

	rr := doRequest(newTestServer(nil, nil, nil), "POST", "/api/v1/documents/doc-1/proposals/apply", "member-token", body)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestApplyProposal_Locked(t *testing.T) {
	editing := &mockEditingService{
		applyFn: func(ctx context.Context, documentID string, proposal *domain.Proposal) (*driving.EditResult, error) {
			return nil, domain.ErrDocumentLocked
		},
	}
	body := `{"id":"prop-1","operations":[]}`

	rr := doRequest(newTestServer(nil, editing, nil), "POST", "/api/v1/documents/doc-1/proposals/apply", "member-token", body)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestUndoRedo(t *testing.T) {
	editing := &mockEditingService{
		undoFn: func(ctx context.Context, documentID string) (*driving.EditResult, error) {
			return &driving.EditResult{Commands: 1, CanRedo: true}, nil
		},
		redoFn: func(ctx context.Context, documentID string) (*driving.EditResult, error) {
			return nil, domain.ErrNothingToRedo
		},
	}
	server := newTestServer(nil, editing, nil)

	if rr := doRequest(server, "POST", "/api/v1/documents/doc-1/undo", "member-token", ""); rr.Code != http.StatusOK {
		t.Errorf("undo: expected status 200, got %d", rr.Code)
	}
	if rr := doRequest(server, "POST", "/api/v1/documents/doc-1/redo", "member-token", ""); rr.Code != http.StatusConflict {
		t.Errorf("redo: expected status 409, got %d", rr.Code)
	}
}

func TestRollbackGroup(t *testing.T) {
	var gotDoc, gotSection, gotGroup string
	editing := &mockEditingService{
		rollbackFn: func(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error) {
			gotDoc, gotSection, gotGroup = documentID, sectionID, groupID
			return &driving.EditResult{GroupID: groupID, Commands: 2}, nil
		},
	}
	server := newTestServer(nil, editing, nil)

	rr := doRequest(server, "POST", "/api/v1/documents/doc-1/groups/g-9/rollback", "member-token", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without section_id, got %d", rr.Code)
	}

	rr = doRequest(server, "POST", "/api/v1/documents/doc-1/groups/g-9/rollback?section_id=sec-2", "member-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotDoc != "doc-1" || gotSection != "sec-2" || gotGroup != "g-9" {
		t.Errorf("unexpected arguments: %s %s %s", gotDoc, gotSection, gotGroup)
	}
}

func TestReapplyGroup_UnknownGroup(t *testing.T) {
	editing := &mockEditingService{
		reapplyFn: func(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error) {
			return nil, domain.ErrGroupNotFound
		},
	}

	rr := doRequest(newTestServer(nil, editing, nil), "POST", "/api/v1/documents/doc-1/groups/g-1/reapply?section_id=sec-1", "member-token", "")

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHistory(t *testing.T) {
	var gotLimit int
	editing := &mockEditingService{
		historyFn: func(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	server := newTestServer(nil, editing, nil)

	rr := doRequest(server, "GET", "/api/v1/documents/doc-1/history", "member-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotLimit != 50 {
		t.Errorf("expected default limit 50, got %d", gotLimit)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}

	doRequest(server, "GET", "/api/v1/documents/doc-1/history?limit=5", "member-token", "")
	if gotLimit != 5 {
		t.Errorf("expected limit 5, got %d", gotLimit)
	}

	rr = doRequest(server, "GET", "/api/v1/documents/doc-1/history?limit=zero", "member-token", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid limit, got %d", rr.Code)
	}
}

// AI settings

func TestGetAISettings_MasksKeys(t *testing.T) {
	settings := &mockSettingsService{
		getAISettingsFn: func(ctx context.Context) (*domain.AISettings, error) {
			s := domain.DefaultAISettings("team-1")
			s.Providers = append(s.Providers, domain.ProviderSettings{
				Provider: domain.ProviderOpenAI,
				Model:    "gpt-4o-mini",
				APIKey:   "sk-secret",
			})
			return s, nil
		},
	}

	rr := doRequest(newTestServer(nil, nil, settings), "GET", "/api/v1/settings/ai", "admin-token", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "sk-secret") {
		t.Fatal("API key leaked in response")
	}

	var response aiSettingsResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(response.Providers))
	}
	openai := response.Providers[1]
	if !openai.HasAPIKey || !openai.IsConfigured {
		t.Errorf("expected openai to report a configured key, got %+v", openai)
	}
}

func TestGetAISettings_NotAdmin(t *testing.T) {
	rr := doRequest(newTestServer(nil, nil, nil), "GET", "/api/v1/settings/ai", "member-token", "")

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestUpdateAISettings(t *testing.T) {
	var gotUpdater string
	var gotReq driving.UpdateAISettingsRequest
	settings := &mockSettingsService{
		updateAISettingsFn: func(ctx context.Context, updaterID string, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
			gotUpdater, gotReq = updaterID, req
			return &driving.AISettingsStatus{
				Enabled:  true,
				Settings: &domain.AISettings{Providers: []domain.ProviderSettings{{Provider: domain.ProviderOpenAI, APIKey: "sk-new"}}},
			}, nil
		},
	}
	body := `{"enabled":true,"providers":[{"provider":"openai","model":"gpt-4o-mini","api_key":"sk-new"}]}`

	rr := doRequest(newTestServer(nil, nil, settings), "PUT", "/api/v1/settings/ai", "admin-token", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotUpdater != "admin-1" {
		t.Errorf("expected updater admin-1, got %s", gotUpdater)
	}
	if gotReq.Enabled == nil || !*gotReq.Enabled || len(gotReq.Providers) != 1 {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if strings.Contains(rr.Body.String(), "settings") {
		t.Errorf("expected raw settings to be stripped, got %s", rr.Body.String())
	}
}

func TestUpdateAISettings_InvalidProvider(t *testing.T) {
	settings := &mockSettingsService{
		updateAISettingsFn: func(ctx context.Context, updaterID string, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
			return nil, domain.ErrInvalidProvider
		},
	}

	rr := doRequest(newTestServer(nil, nil, settings), "PUT", "/api/v1/settings/ai", "admin-token", `{"default_text_provider":"acme"}`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestGetAIStatus(t *testing.T) {
	settings := &mockSettingsService{
		getAIStatusFn: func(ctx context.Context) (*driving.AISettingsStatus, error) {
			return &driving.AISettingsStatus{
				Enabled:   true,
				Providers: []driving.ProviderStatus{{Provider: domain.ProviderMock, Available: true}},
			}, nil
		},
	}

	rr := doRequest(newTestServer(nil, nil, settings), "GET", "/api/v1/settings/ai/status", "member-token", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var status driving.AISettingsStatus
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(status.Providers) != 1 || !status.Providers[0].Available {
		t.Errorf("unexpected status: %+v", status)
	}
}
