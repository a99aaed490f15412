package service

import (
	"time"

	"github.com/wysosilly/almost-happy-home/game/engine"
	"github.com/wysosilly/almost-happy-home/game/present"
)

// CueFrameRate is the sampling rate of baked cue keyframes
const CueFrameRate = 30

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ActionResult contains the result of a single engine request
type ActionResult struct {
	Success   bool              `json:"success"`
	Outcome   engine.Outcome    `json:"outcome"`
	Code      string            `json:"code,omitempty"`
	Error     string            `json:"error,omitempty"`
	Rejected  []string          `json:"rejected,omitempty"`
	Message   string            `json:"message"`
	GameState *engine.GameState `json:"game_state"`
	Cues      []present.Cue     `json:"cues,omitempty"`
}

// TurnResult contains the result of ending a turn
type TurnResult struct {
	Success   bool              `json:"success"`
	Code      string            `json:"code,omitempty"`
	Error     string            `json:"error,omitempty"`
	Report    engine.TurnReport `json:"report"`
	Message   string            `json:"message"`
	GameState *engine.GameState `json:"game_state"`
	Cues      []present.Cue     `json:"cues,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions      []engine.ActionHistoryEntry `json:"actions"`
	TotalActions int                         `json:"total_actions"`
	Page         int                         `json:"page"`
	PageSize     int                         `json:"page_size"`
	TotalPages   int                         `json:"total_pages"`
	HasNext      bool                        `json:"has_next"`
	HasPrevious  bool                        `json:"has_previous"`
}

// ConfigInfo provides information about a rule set
type ConfigInfo struct {
	Filename         string `json:"filename"`
	ConfigID         string `json:"config_id"` // The identifier to use for session creation
	Name             string `json:"name"`      // Display name
	Description      string `json:"description"`
	Stages           int    `json:"stages"`
	CatalogSize      int    `json:"catalog_size"`
	BaseActionPoints int    `json:"base_action_points"`
}

// NewConfigInfo summarizes a loaded rule set
func NewConfigInfo(filename, configID string, config *engine.GameConfig) *ConfigInfo {
	return &ConfigInfo{
		Filename:         filename,
		ConfigID:         configID,
		Name:             config.Name,
		Description:      config.Description,
		Stages:           len(config.Stages),
		CatalogSize:      len(config.Catalog),
		BaseActionPoints: config.BaseActionPoints,
	}
}

func newActionResult(res engine.Result, state *engine.GameState, cues []present.Cue) *ActionResult {
	out := &ActionResult{
		Success:   res.OK(),
		Outcome:   res.Outcome,
		Code:      res.Code(),
		Message:   state.Message,
		GameState: state,
		Cues:      cues,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	for _, r := range res.Rejected {
		out.Rejected = append(out.Rejected, r.Error())
	}
	return out
}
