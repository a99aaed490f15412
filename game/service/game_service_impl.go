package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wysosilly/almost-happy-home/game/engine"
	"github.com/wysosilly/almost-happy-home/game/present"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.info(session, configID), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.lock(sessionID)
	if err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	return s.info(session, s.getConfigID(session.Config.Name)), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		result = append(result, s.info(sess, s.getConfigID(sess.Config.Name)))
		sess.mu.Unlock()
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// Move drops a piece at pos, storing it when a storage is under the target
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*ActionResult, error) {
	return s.act(sessionID, furnitureID, func(e *engine.GameEngine) engine.Result {
		return e.Move(furnitureID, pos)
	})
}

// Rotate turns a piece a quarter turn in place
func (s *gameServiceImpl) Rotate(ctx context.Context, sessionID, furnitureID string) (*ActionResult, error) {
	return s.act(sessionID, furnitureID, func(e *engine.GameEngine) engine.Result {
		return e.Rotate(furnitureID)
	})
}

// Store puts an item into a storage piece
func (s *gameServiceImpl) Store(ctx context.Context, sessionID, itemID, storageID string) (*ActionResult, error) {
	return s.act(sessionID, itemID, func(e *engine.GameEngine) engine.Result {
		return e.Store(itemID, storageID)
	})
}

// TakeOut places a stored item back on the floor
func (s *gameServiceImpl) TakeOut(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*ActionResult, error) {
	return s.act(sessionID, furnitureID, func(e *engine.GameEngine) engine.Result {
		return e.TakeOut(furnitureID, pos)
	})
}

// Merge combines two identical pieces
func (s *gameServiceImpl) Merge(ctx context.Context, sessionID, sourceID, targetID string) (*ActionResult, error) {
	return s.act(sessionID, sourceID, func(e *engine.GameEngine) engine.Result {
		return e.Merge(sourceID, targetID)
	})
}

// AttachToWall mounts a piece on a wall span
func (s *gameServiceImpl) AttachToWall(ctx context.Context, sessionID, furnitureID string, hit engine.WallHit) (*ActionResult, error) {
	return s.act(sessionID, furnitureID, func(e *engine.GameEngine) engine.Result {
		return e.AttachToWall(furnitureID, hit)
	})
}

// DetachFromWall moves a wall piece back to the floor
func (s *gameServiceImpl) DetachFromWall(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*ActionResult, error) {
	return s.act(sessionID, furnitureID, func(e *engine.GameEngine) engine.Result {
		return e.DetachFromWall(furnitureID, pos)
	})
}

// SelectOffer picks one of this turn's offers
func (s *gameServiceImpl) SelectOffer(ctx context.Context, sessionID string, index int) (*ActionResult, error) {
	return s.act(sessionID, "", func(e *engine.GameEngine) engine.Result {
		return e.SelectOffer(index)
	})
}

// PlaceSelection schedules the selected offer for delivery at pos
func (s *gameServiceImpl) PlaceSelection(ctx context.Context, sessionID string, pos engine.HalfCell, rotation int) (*ActionResult, error) {
	return s.act(sessionID, "", func(e *engine.GameEngine) engine.Result {
		return e.PlaceSelection(pos, rotation)
	})
}

// CancelSelection drops the selected offer
func (s *gameServiceImpl) CancelSelection(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "", func(e *engine.GameEngine) engine.Result {
		return e.CancelSelection()
	})
}

// ApplyEnhancement consumes one pending enhancement
func (s *gameServiceImpl) ApplyEnhancement(ctx context.Context, sessionID string, enh engine.Enhancement, targetID string) (*ActionResult, error) {
	return s.act(sessionID, targetID, func(e *engine.GameEngine) engine.Result {
		return e.ApplyEnhancement(enh, targetID)
	})
}

// RequestExpansion unlocks a candidate cell
func (s *gameServiceImpl) RequestExpansion(ctx context.Context, sessionID string, cell engine.GridCell) (*ActionResult, error) {
	return s.act(sessionID, "", func(e *engine.GameEngine) engine.Result {
		return e.RequestExpansion(cell)
	})
}

// Retry restarts the game from the first stage
func (s *gameServiceImpl) Retry(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "", func(e *engine.GameEngine) engine.Result {
		return e.Retry()
	})
}

// EndTurn scores the room and advances the schedule
func (s *gameServiceImpl) EndTurn(ctx context.Context, sessionID string) (*TurnResult, error) {
	sess, err := s.lock(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	report := sess.Engine.EndTurn()
	state := sess.Engine.GetState()

	result := &TurnResult{
		Success:   report.OK(),
		Code:      report.Code(),
		Report:    report,
		Message:   state.Message,
		GameState: state,
	}
	if report.Err != nil {
		result.Error = report.Err.Error()
		return result, nil
	}
	result.Cues = present.Bake(present.CuesForTurn(report, state), CueFrameRate)
	return result, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.lock(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	return sess.Engine.GetState(), nil
}

// GetActionHistory retrieves paginated action history
func (s *gameServiceImpl) GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	history := sess.Engine.GetActionHistory()
	sess.mu.Unlock()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	actions := []engine.ActionHistoryEntry{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < total {
		actions = append(actions, history[start:end]...)
	}

	return &HistoryResponse{
		Actions:      actions,
		TotalActions: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// ListConfigs returns the available rule sets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a rule set by name
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig validates and stores a rule set
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// act runs one engine request under the session lock and attaches its cues
func (s *gameServiceImpl) act(sessionID, furnitureID string, do func(*engine.GameEngine) engine.Result) (*ActionResult, error) {
	sess, err := s.lock(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	before := sess.Engine.GetState()
	res := do(sess.Engine)
	state := sess.Engine.GetState()

	cues := present.CuesForAction(before, state, furnitureID, res)
	return newActionResult(res, state, present.Bake(cues, CueFrameRate)), nil
}

// session looks a session up, reporting any miss as ErrSessionNotFound
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// lock looks a session up, takes its lock and stamps the access. The caller
// unlocks.
func (s *gameServiceImpl) lock(sessionID string) (*Session, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// info must run under the session lock
func (s *gameServiceImpl) info(session *Session, configID string) *SessionInfo {
	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt(),
		GameState:      session.Engine.GetState(),
		GameConfig:     session.Config,
	}
}
