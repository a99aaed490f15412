package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wysosilly/almost-happy-home/game/engine"
	"github.com/wysosilly/almost-happy-home/game/present"
	"github.com/wysosilly/almost-happy-home/game/service"
	"github.com/wysosilly/almost-happy-home/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Furniture requests
	MoveFunc           func(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error)
	RotateFunc         func(ctx context.Context, sessionID, furnitureID string) (*service.ActionResult, error)
	StoreFunc          func(ctx context.Context, sessionID, itemID, storageID string) (*service.ActionResult, error)
	TakeOutFunc        func(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error)
	MergeFunc          func(ctx context.Context, sessionID, sourceID, targetID string) (*service.ActionResult, error)
	AttachToWallFunc   func(ctx context.Context, sessionID, furnitureID string, hit engine.WallHit) (*service.ActionResult, error)
	DetachFromWallFunc func(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error)

	// Offers and progression
	SelectOfferFunc      func(ctx context.Context, sessionID string, index int) (*service.ActionResult, error)
	PlaceSelectionFunc   func(ctx context.Context, sessionID string, pos engine.HalfCell, rotation int) (*service.ActionResult, error)
	CancelSelectionFunc  func(ctx context.Context, sessionID string) (*service.ActionResult, error)
	ApplyEnhancementFunc func(ctx context.Context, sessionID string, enh engine.Enhancement, targetID string) (*service.ActionResult, error)
	RequestExpansionFunc func(ctx context.Context, sessionID string, cell engine.GridCell) (*service.ActionResult, error)
	EndTurnFunc          func(ctx context.Context, sessionID string) (*service.TurnResult, error)
	RetryFunc            func(ctx context.Context, sessionID string) (*service.ActionResult, error)

	// Game State
	GetGameStateFunc     func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetActionHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

func okResult(outcome engine.Outcome) *service.ActionResult {
	return &service.ActionResult{
		Success:   true,
		Outcome:   outcome,
		GameState: &engine.GameState{ActionPoints: 2},
	}
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		ConfigName: configName,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		ConfigName: "test-config",
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Furniture requests
func (m *MockGameService) Move(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, furnitureID, pos)
	}
	return okResult(engine.OutcomeMoved), nil
}

func (m *MockGameService) Rotate(ctx context.Context, sessionID, furnitureID string) (*service.ActionResult, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, sessionID, furnitureID)
	}
	return okResult(engine.OutcomeMoved), nil
}

func (m *MockGameService) Store(ctx context.Context, sessionID, itemID, storageID string) (*service.ActionResult, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, sessionID, itemID, storageID)
	}
	return okResult(engine.OutcomeStored), nil
}

func (m *MockGameService) TakeOut(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error) {
	if m.TakeOutFunc != nil {
		return m.TakeOutFunc(ctx, sessionID, furnitureID, pos)
	}
	return okResult(engine.OutcomeTakenOut), nil
}

func (m *MockGameService) Merge(ctx context.Context, sessionID, sourceID, targetID string) (*service.ActionResult, error) {
	if m.MergeFunc != nil {
		return m.MergeFunc(ctx, sessionID, sourceID, targetID)
	}
	return okResult(engine.OutcomeMerged), nil
}

func (m *MockGameService) AttachToWall(ctx context.Context, sessionID, furnitureID string, hit engine.WallHit) (*service.ActionResult, error) {
	if m.AttachToWallFunc != nil {
		return m.AttachToWallFunc(ctx, sessionID, furnitureID, hit)
	}
	return okResult(engine.OutcomeMoved), nil
}

func (m *MockGameService) DetachFromWall(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error) {
	if m.DetachFromWallFunc != nil {
		return m.DetachFromWallFunc(ctx, sessionID, furnitureID, pos)
	}
	return okResult(engine.OutcomeMoved), nil
}

// Offers and progression
func (m *MockGameService) SelectOffer(ctx context.Context, sessionID string, index int) (*service.ActionResult, error) {
	if m.SelectOfferFunc != nil {
		return m.SelectOfferFunc(ctx, sessionID, index)
	}
	return okResult(""), nil
}

func (m *MockGameService) PlaceSelection(ctx context.Context, sessionID string, pos engine.HalfCell, rotation int) (*service.ActionResult, error) {
	if m.PlaceSelectionFunc != nil {
		return m.PlaceSelectionFunc(ctx, sessionID, pos, rotation)
	}
	return okResult(""), nil
}

func (m *MockGameService) CancelSelection(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	if m.CancelSelectionFunc != nil {
		return m.CancelSelectionFunc(ctx, sessionID)
	}
	return okResult(""), nil
}

func (m *MockGameService) ApplyEnhancement(ctx context.Context, sessionID string, enh engine.Enhancement, targetID string) (*service.ActionResult, error) {
	if m.ApplyEnhancementFunc != nil {
		return m.ApplyEnhancementFunc(ctx, sessionID, enh, targetID)
	}
	return okResult(""), nil
}

func (m *MockGameService) RequestExpansion(ctx context.Context, sessionID string, cell engine.GridCell) (*service.ActionResult, error) {
	if m.RequestExpansionFunc != nil {
		return m.RequestExpansionFunc(ctx, sessionID, cell)
	}
	return okResult(""), nil
}

func (m *MockGameService) EndTurn(ctx context.Context, sessionID string) (*service.TurnResult, error) {
	if m.EndTurnFunc != nil {
		return m.EndTurnFunc(ctx, sessionID)
	}
	return &service.TurnResult{
		Success:   true,
		GameState: &engine.GameState{},
	}, nil
}

func (m *MockGameService) Retry(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, sessionID)
	}
	return okResult(""), nil
}

// Game State
func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetActionHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetActionHistoryFunc != nil {
		return m.GetActionHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Actions:    []engine.ActionHistoryEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

// Configuration
func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{
		Name:        configName,
		Description: "Test config",
	}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	hub := websocket.NewHub()
	go hub.Run()
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest(method, path, body))
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "a1b2", ConfigName: "classic", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "a1b2" {
					t.Errorf("Expected session ID a1b2, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific config",
			requestBody: map[string]string{"config_id": "cozy"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "cozy" {
						t.Errorf("Expected config name 'cozy', got %s", configName)
					}
					return &service.SessionInfo{ID: "c3d4", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != "cozy" {
					t.Errorf("Expected config name 'cozy', got %s", resp.ConfigName)
				}
			},
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("%w: '%s'", service.ErrConfigNotFound, configName)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			var body interface{}
			if tt.requestBody != nil {
				body = tt.requestBody
			}
			w := serve(setupTestServer(mockService), "POST", "/api/sessions", body)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions_SortAndLimit(t *testing.T) {
	now := time.Now()
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now},
				{ID: "new", CreatedAt: now, LastAccessedAt: now.Add(-time.Hour)},
				{ID: "mid", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-2 * time.Hour)},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		query    string
		expected []string
		total    int
	}{
		{"", []string{"old", "new", "mid"}, 3},
		{"?sort=created", []string{"new", "mid", "old"}, 3},
		{"?sort=created&order=asc&limit=2", []string{"old", "mid"}, 3},
		{"?limit=abc", []string{"old", "new", "mid"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(server, "GET", "/api/sessions"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Count != len(tt.expected) || resp.Total != tt.total {
				t.Errorf("Expected count %d of %d, got %d of %d", len(tt.expected), tt.total, resp.Count, resp.Total)
			}
			for i, id := range tt.expected {
				if i < len(resp.Sessions) && resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestListSessions_Error(t *testing.T) {
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return nil, fmt.Errorf("database error")
		},
	}
	w := serve(setupTestServer(mockService), "GET", "/api/sessions", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "a1b2" {
				return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "a1b2" {
				return fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, "GET", "/api/sessions/a1b2", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, "GET", "/api/sessions/zzzz", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := serve(server, "DELETE", "/api/sessions/a1b2", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, "DELETE", "/api/sessions/zzzz", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Game State Tests

func TestGetGameState(t *testing.T) {
	mockService := &MockGameService{
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return &engine.GameState{StageName: "Kitchen", Happy: 12, Phase: engine.PhaseIdle}, nil
		},
	}
	w := serve(setupTestServer(mockService), "GET", "/api/sessions/a1b2/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state engine.GameState
	parseResponse(t, w, &state)
	if state.StageName != "Kitchen" || state.Happy != 12 {
		t.Errorf("Expected Kitchen with 12 happy, got %s with %d", state.StageName, state.Happy)
	}
}

func TestGetHistory_Options(t *testing.T) {
	tests := []struct {
		query    string
		expected service.HistoryOptions
	}{
		{"", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"?page=-1&limit=x&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetActionHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Page: opts.Page}, nil
				},
			}
			w := serve(setupTestServer(mockService), "GET", "/api/sessions/a1b2/history"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.expected {
				t.Errorf("Expected options %+v, got %+v", tt.expected, got)
			}
		})
	}
}

// Furniture Tests

func TestMove_PositionForms(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		status   int
		expected engine.HalfCell
	}{
		{"half-cell", map[string]interface{}{"pos": map[string]int{"x": 3, "y": 5}}, http.StatusOK, engine.HalfCell{X: 3, Y: 5}},
		{"grid cell", map[string]interface{}{"cell": map[string]int{"x": 2, "y": 1}}, http.StatusOK, engine.HalfCell{X: 4, Y: 2}},
		{"missing", map[string]interface{}{}, http.StatusBadRequest, engine.HalfCell{}},
		{"no body", nil, http.StatusBadRequest, engine.HalfCell{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mockService := &MockGameService{
				MoveFunc: func(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error) {
					called = true
					if sessionID != "a1b2" || furnitureID != "chair-1" {
						t.Errorf("Expected a1b2/chair-1, got %s/%s", sessionID, furnitureID)
					}
					if pos != tt.expected {
						t.Errorf("Expected pos %v, got %v", tt.expected, pos)
					}
					return okResult(engine.OutcomeMoved), nil
				},
			}
			w := serve(setupTestServer(mockService), "POST", "/api/sessions/a1b2/furniture/chair-1/move", tt.body)
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if called != (tt.status == http.StatusOK) {
				t.Errorf("Expected service call %v, got %v", tt.status == http.StatusOK, called)
			}
		})
	}
}

func TestMove_RejectedIsNotHTTPError(t *testing.T) {
	mockService := &MockGameService{
		MoveFunc: func(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error) {
			return &service.ActionResult{
				Success:   false,
				Code:      "invalid_placement",
				Error:     "invalid placement: chair-1",
				Rejected:  []string{"chair-1"},
				GameState: &engine.GameState{},
				Cues:      []present.Cue{{Kind: present.CueShake, FurnitureID: "chair-1"}},
			}, nil
		},
	}
	w := serve(setupTestServer(mockService), "POST", "/api/sessions/a1b2/furniture/chair-1/move",
		map[string]interface{}{"pos": map[string]int{"x": 40, "y": 40}})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.ActionResult
	parseResponse(t, w, &resp)
	if resp.Success || resp.Code != "invalid_placement" {
		t.Errorf("Expected invalid_placement rejection, got success=%v code=%s", resp.Success, resp.Code)
	}
	if len(resp.Cues) != 1 || resp.Cues[0].Kind != present.CueShake {
		t.Errorf("Expected one shake cue, got %+v", resp.Cues)
	}
}

func TestFurnitureRoutes(t *testing.T) {
	var calls []string
	mockService := &MockGameService{
		RotateFunc: func(ctx context.Context, sessionID, furnitureID string) (*service.ActionResult, error) {
			calls = append(calls, "rotate:"+furnitureID)
			return okResult(engine.OutcomeMoved), nil
		},
		StoreFunc: func(ctx context.Context, sessionID, itemID, storageID string) (*service.ActionResult, error) {
			calls = append(calls, "store:"+itemID+">"+storageID)
			return okResult(engine.OutcomeStored), nil
		},
		TakeOutFunc: func(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error) {
			calls = append(calls, fmt.Sprintf("take_out:%s@%d,%d", furnitureID, pos.X, pos.Y))
			return okResult(engine.OutcomeTakenOut), nil
		},
		MergeFunc: func(ctx context.Context, sessionID, sourceID, targetID string) (*service.ActionResult, error) {
			calls = append(calls, "merge:"+sourceID+"+"+targetID)
			return okResult(engine.OutcomeMerged), nil
		},
		AttachToWallFunc: func(ctx context.Context, sessionID, furnitureID string, hit engine.WallHit) (*service.ActionResult, error) {
			calls = append(calls, fmt.Sprintf("wall:%s@%s", furnitureID, hit.Side))
			return okResult(engine.OutcomeMoved), nil
		},
		DetachFromWallFunc: func(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*service.ActionResult, error) {
			calls = append(calls, fmt.Sprintf("detach:%s@%d,%d", furnitureID, pos.X, pos.Y))
			return okResult(engine.OutcomeMoved), nil
		},
	}
	server := setupTestServer(mockService)
	base := "/api/sessions/a1b2/furniture/"

	requests := []struct {
		path string
		body interface{}
	}{
		{"sofa-1/rotate", nil},
		{"apple-1/store", map[string]string{"storage_id": "fridge-1"}},
		{"apple-1/take-out", map[string]interface{}{"cell": map[string]int{"x": 1, "y": 1}}},
		{"chair-1/merge", map[string]string{"target_id": "chair-2"}},
		{"clock-1/wall", map[string]interface{}{"side": "up_left", "along": 1.5, "elevation": 0.5}},
		{"clock-1/detach", map[string]interface{}{"pos": map[string]int{"x": 0, "y": 1}}},
	}
	for _, r := range requests {
		if w := serve(server, "POST", base+r.path, r.body); w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", r.path, w.Code)
		}
	}

	expected := []string{
		"rotate:sofa-1",
		"store:apple-1>fridge-1",
		"take_out:apple-1@2,2",
		"merge:chair-1+chair-2",
		"wall:clock-1@up_left",
		"detach:clock-1@0,1",
	}
	if len(calls) != len(expected) {
		t.Fatalf("Expected %d calls, got %v", len(expected), calls)
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Call %d: expected %s, got %s", i, expected[i], calls[i])
		}
	}
}

func TestFurnitureRoutes_BadBodies(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	base := "/api/sessions/a1b2/furniture/"

	for _, path := range []string{"apple-1/store", "chair-1/merge", "clock-1/wall"} {
		if w := serve(server, "POST", base+path, map[string]string{}); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, w.Code)
		}
	}
}

func TestAction_UnknownSession(t *testing.T) {
	mockService := &MockGameService{
		RotateFunc: func(ctx context.Context, sessionID, furnitureID string) (*service.ActionResult, error) {
			return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
		},
	}
	w := serve(setupTestServer(mockService), "POST", "/api/sessions/zzzz/furniture/chair-1/rotate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Offer and Progression Tests

func TestSelectOffer(t *testing.T) {
	var got int
	mockService := &MockGameService{
		SelectOfferFunc: func(ctx context.Context, sessionID string, index int) (*service.ActionResult, error) {
			got = index
			return okResult(""), nil
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, "POST", "/api/sessions/a1b2/offers/2/select", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if got != 2 {
		t.Errorf("Expected offer 2, got %d", got)
	}
	if w := serve(server, "POST", "/api/sessions/a1b2/offers/two/select", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPlaceSelection(t *testing.T) {
	mockService := &MockGameService{
		PlaceSelectionFunc: func(ctx context.Context, sessionID string, pos engine.HalfCell, rotation int) (*service.ActionResult, error) {
			if pos != (engine.HalfCell{X: 2, Y: 4}) || rotation != 3 {
				t.Errorf("Expected (2,4) rot 3, got %v rot %d", pos, rotation)
			}
			return okResult(""), nil
		},
	}
	server := setupTestServer(mockService)

	body := map[string]interface{}{"cell": map[string]int{"x": 1, "y": 2}, "rotation": 3}
	if w := serve(server, "POST", "/api/sessions/a1b2/selection/place", body); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, "POST", "/api/sessions/a1b2/selection/place", map[string]int{"rotation": 1}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if w := serve(server, "POST", "/api/sessions/a1b2/selection/cancel", nil); w.Code != http.StatusOK {
		t.Errorf("Expected cancel status 200, got %d", w.Code)
	}
}

func TestApplyEnhancement(t *testing.T) {
	mockService := &MockGameService{
		ApplyEnhancementFunc: func(ctx context.Context, sessionID string, enh engine.Enhancement, targetID string) (*service.ActionResult, error) {
			if enh.Kind != engine.EnhanceHappy || targetID != "sofa-1" {
				t.Errorf("Unexpected enhancement %+v on %s", enh, targetID)
			}
			if enh.Amount != 0 {
				t.Errorf("Expected the client amount to be dropped, got %d", enh.Amount)
			}
			return okResult(""), nil
		},
	}
	server := setupTestServer(mockService)

	body := map[string]interface{}{"kind": "happy_boost", "amount": 1000000, "target_id": "sofa-1"}
	if w := serve(server, "POST", "/api/sessions/a1b2/enhancements", body); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, "POST", "/api/sessions/a1b2/enhancements", map[string]int{"amount": 1}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestRequestExpansion(t *testing.T) {
	mockService := &MockGameService{
		RequestExpansionFunc: func(ctx context.Context, sessionID string, cell engine.GridCell) (*service.ActionResult, error) {
			if cell != (engine.GridCell{X: 6, Y: 0}) {
				t.Errorf("Expected cell (6,0), got %v", cell)
			}
			return okResult(""), nil
		},
	}
	server := setupTestServer(mockService)

	body := map[string]interface{}{"cell": map[string]int{"x": 6, "y": 0}}
	if w := serve(server, "POST", "/api/sessions/a1b2/expansion", body); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, "POST", "/api/sessions/a1b2/expansion", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestEndTurn(t *testing.T) {
	mockService := &MockGameService{
		EndTurnFunc: func(ctx context.Context, sessionID string) (*service.TurnResult, error) {
			return &service.TurnResult{
				Success: true,
				Report: engine.TurnReport{
					Scored:     5,
					Delivered:  []string{"apple-3"},
					Transition: engine.TransitionRoundCleared,
				},
				GameState: &engine.GameState{Happy: 15},
			}, nil
		},
	}
	w := serve(setupTestServer(mockService), "POST", "/api/sessions/a1b2/end-turn", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.TurnResult
	parseResponse(t, w, &resp)
	if resp.Report.Scored != 5 || resp.Report.Transition != engine.TransitionRoundCleared {
		t.Errorf("Expected 5 scored and round cleared, got %d and %s", resp.Report.Scored, resp.Report.Transition)
	}
}

func TestRetry(t *testing.T) {
	called := false
	mockService := &MockGameService{
		RetryFunc: func(ctx context.Context, sessionID string) (*service.ActionResult, error) {
			called = true
			return okResult(""), nil
		},
	}
	if w := serve(setupTestServer(mockService), "POST", "/api/sessions/a1b2/retry", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !called {
		t.Error("Expected retry to reach the service")
	}
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	var saved string
	mockService := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic"}, {ConfigID: "cozy"}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.GameConfig, error) {
			if configName != "classic" {
				return nil, fmt.Errorf("%w: %s", service.ErrConfigNotFound, configName)
			}
			return &engine.GameConfig{Name: "Classic"}, nil
		},
		SaveConfigFunc: func(ctx context.Context, configName string, config *engine.GameConfig) error {
			saved = configName
			return nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, "GET", "/api/configs", nil)
	var configs []*service.ConfigInfo
	parseResponse(t, w, &configs)
	if len(configs) != 2 {
		t.Errorf("Expected 2 configs, got %d", len(configs))
	}

	if w := serve(server, "GET", "/api/configs/classic", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, "GET", "/api/configs/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = serve(server, "POST", "/api/configs", map[string]interface{}{"name": "Tiny Flat"})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if saved != "tiny_flat" {
		t.Errorf("Expected config id tiny_flat, got %s", saved)
	}
	if w := serve(server, "POST", "/api/configs", map[string]interface{}{}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a nameless config, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(&MockGameService{}), "GET", "/api/health", nil)
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %s", resp["status"])
	}
}

func TestWebSocket_RequiresSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, "GET", "/ws", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if w := serve(server, "GET", "/ws?session=zzzz", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
