package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wysosilly/almost-happy-home/game/engine"
	"github.com/wysosilly/almost-happy-home/game/service"
	"github.com/wysosilly/almost-happy-home/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game state
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Furniture requests
	furniture := api.PathPrefix("/sessions/{id}/furniture/{fid}").Subrouter()
	furniture.HandleFunc("/move", s.handleMove).Methods("POST")
	furniture.HandleFunc("/rotate", s.handleRotate).Methods("POST")
	furniture.HandleFunc("/store", s.handleStore).Methods("POST")
	furniture.HandleFunc("/take-out", s.handleTakeOut).Methods("POST")
	furniture.HandleFunc("/merge", s.handleMerge).Methods("POST")
	furniture.HandleFunc("/wall", s.handleAttachToWall).Methods("POST")
	furniture.HandleFunc("/detach", s.handleDetach).Methods("POST")

	// Offers and progression
	api.HandleFunc("/sessions/{id}/offers/{index}/select", s.handleSelectOffer).Methods("POST")
	api.HandleFunc("/sessions/{id}/selection/place", s.handlePlaceSelection).Methods("POST")
	api.HandleFunc("/sessions/{id}/selection/cancel", s.handleCancelSelection).Methods("POST")
	api.HandleFunc("/sessions/{id}/enhancements", s.handleApplyEnhancement).Methods("POST")
	api.HandleFunc("/sessions/{id}/expansion", s.handleRequestExpansion).Methods("POST")
	api.HandleFunc("/sessions/{id}/end-turn", s.handleEndTurn).Methods("POST")
	api.HandleFunc("/sessions/{id}/retry", s.handleRetry).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// positionRequest names a target either in half-cells (pos) or as a grid cell
type positionRequest struct {
	Pos  *engine.HalfCell `json:"pos,omitempty"`
	Cell *engine.GridCell `json:"cell,omitempty"`
}

func (p positionRequest) resolve() (engine.HalfCell, error) {
	switch {
	case p.Pos != nil:
		return *p.Pos, nil
	case p.Cell != nil:
		return p.Cell.Origin(), nil
	default:
		return engine.HalfCell{}, errors.New("pos or cell is required")
	}
}

// decode reads a JSON body; an empty body leaves req untouched
func decode(r *http.Request, req interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return errors.New("Invalid request body")
	}
	return nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.ConfigID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	fmt.Printf("[SESSION] session=%s config=%s created\n", session.ID, session.ConfigName)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	limit := total
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, "session_deleted", nil)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game State Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetActionHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Furniture Handlers

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	pos, ok := s.decodePosition(w, r, &req)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	result, err := s.service.Move(r.Context(), vars["id"], vars["fid"], pos)
	s.finishAction(w, vars["id"], "MOVE", fmt.Sprintf("%s -> (%d,%d)", vars["fid"], pos.X, pos.Y), result, err)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.service.Rotate(r.Context(), vars["id"], vars["fid"])
	s.finishAction(w, vars["id"], "ROTATE", vars["fid"], result, err)
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StorageID string `json:"storage_id"`
	}
	if err := decode(r, &req); err != nil || req.StorageID == "" {
		respondError(w, http.StatusBadRequest, "storage_id is required")
		return
	}
	vars := mux.Vars(r)
	result, err := s.service.Store(r.Context(), vars["id"], vars["fid"], req.StorageID)
	s.finishAction(w, vars["id"], "STORE", vars["fid"]+" -> "+req.StorageID, result, err)
}

func (s *Server) handleTakeOut(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	pos, ok := s.decodePosition(w, r, &req)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	result, err := s.service.TakeOut(r.Context(), vars["id"], vars["fid"], pos)
	s.finishAction(w, vars["id"], "TAKE_OUT", fmt.Sprintf("%s -> (%d,%d)", vars["fid"], pos.X, pos.Y), result, err)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string `json:"target_id"`
	}
	if err := decode(r, &req); err != nil || req.TargetID == "" {
		respondError(w, http.StatusBadRequest, "target_id is required")
		return
	}
	vars := mux.Vars(r)
	result, err := s.service.Merge(r.Context(), vars["id"], vars["fid"], req.TargetID)
	s.finishAction(w, vars["id"], "MERGE", vars["fid"]+" + "+req.TargetID, result, err)
}

func (s *Server) handleAttachToWall(w http.ResponseWriter, r *http.Request) {
	var hit engine.WallHit
	if err := decode(r, &hit); err != nil || hit.Side == "" {
		respondError(w, http.StatusBadRequest, "side is required")
		return
	}
	vars := mux.Vars(r)
	result, err := s.service.AttachToWall(r.Context(), vars["id"], vars["fid"], hit)
	s.finishAction(w, vars["id"], "WALL", fmt.Sprintf("%s -> %s@%.2f/%.2f", vars["fid"], hit.Side, hit.Along, hit.Elevation), result, err)
}

func (s *Server) handleDetach(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	pos, ok := s.decodePosition(w, r, &req)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	result, err := s.service.DetachFromWall(r.Context(), vars["id"], vars["fid"], pos)
	s.finishAction(w, vars["id"], "DETACH", fmt.Sprintf("%s -> (%d,%d)", vars["fid"], pos.X, pos.Y), result, err)
}

// Offer and Progression Handlers

func (s *Server) handleSelectOffer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "offer index must be a number")
		return
	}
	result, err := s.service.SelectOffer(r.Context(), vars["id"], index)
	s.finishAction(w, vars["id"], "OFFER", strconv.Itoa(index), result, err)
}

func (s *Server) handlePlaceSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		positionRequest
		Rotation int `json:"rotation"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	pos, err := req.resolve()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.PlaceSelection(r.Context(), sessionID, pos, req.Rotation)
	s.finishAction(w, sessionID, "PLACE", fmt.Sprintf("(%d,%d) rot=%d", pos.X, pos.Y, req.Rotation), result, err)
}

func (s *Server) handleCancelSelection(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.CancelSelection(r.Context(), sessionID)
	s.finishAction(w, sessionID, "CANCEL", "", result, err)
}

func (s *Server) handleApplyEnhancement(w http.ResponseWriter, r *http.Request) {
	// Only the variant and target come from the client; the rule set sets the strength.
	var req struct {
		Kind     engine.EnhancementKind `json:"kind"`
		TargetID string                 `json:"target_id,omitempty"`
	}
	if err := decode(r, &req); err != nil || req.Kind == "" {
		respondError(w, http.StatusBadRequest, "kind is required")
		return
	}
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.ApplyEnhancement(r.Context(), sessionID, engine.Enhancement{Kind: req.Kind}, req.TargetID)
	s.finishAction(w, sessionID, "ENHANCE", string(req.Kind)+" "+req.TargetID, result, err)
}

func (s *Server) handleRequestExpansion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cell *engine.GridCell `json:"cell"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cell := req.Cell
	if cell == nil {
		respondError(w, http.StatusBadRequest, "cell is required")
		return
	}
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.RequestExpansion(r.Context(), sessionID, *cell)
	s.finishAction(w, sessionID, "EXPAND", fmt.Sprintf("(%d,%d)", cell.X, cell.Y), result, err)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.EndTurn(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.GameState, result.Cues)
	}

	rep := result.Report
	happy := 0
	if result.GameState != nil {
		happy = result.GameState.Happy
	}
	fmt.Printf("[TURN] session=%s scored=%d happy=%d delivered=%d destroyed=%d transition=%s status=%s\n",
		sessionID, rep.Scored, happy, len(rep.Delivered), len(rep.Destroyed), rep.Transition, status(result.Success))

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Retry(r.Context(), sessionID)
	s.finishAction(w, sessionID, "RETRY", "", result, err)
}

// decodePosition reads a positionRequest body, answering 400 on failure
func (s *Server) decodePosition(w http.ResponseWriter, r *http.Request, req *positionRequest) (engine.HalfCell, bool) {
	if err := decode(r, req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return engine.HalfCell{}, false
	}
	pos, err := req.resolve()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return engine.HalfCell{}, false
	}
	return pos, true
}

// finishAction broadcasts, logs and answers one engine request
func (s *Server) finishAction(w http.ResponseWriter, sessionID, tag, detail string, result *service.ActionResult, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.GameState, result.Cues)
	}

	line := fmt.Sprintf("[%s] session=%s", tag, sessionID)
	if detail != "" {
		line += " " + detail
	}
	if result.Success {
		line += fmt.Sprintf(" outcome=%s", result.Outcome)
		if result.GameState != nil {
			line += fmt.Sprintf(" ap=%d", result.GameState.ActionPoints)
		}
	} else {
		line += " code=" + result.Code
	}
	fmt.Printf("%s status=%s\n", line, status(result.Success))

	respondJSON(w, http.StatusOK, result)
}

func status(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
		engine.GameConfig
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = strings.ToLower(strings.Join(strings.Fields(req.Name), "_"))
	}
	config := req.GameConfig
	config.ApplyDefaults()

	if err := s.service.SaveConfig(r.Context(), configID, &config); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
