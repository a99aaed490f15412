package service

import (
	"context"
	"sync"
	"time"

	"github.com/wysosilly/almost-happy-home/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Furniture requests
	Move(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*ActionResult, error)
	Rotate(ctx context.Context, sessionID, furnitureID string) (*ActionResult, error)
	Store(ctx context.Context, sessionID, itemID, storageID string) (*ActionResult, error)
	TakeOut(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*ActionResult, error)
	Merge(ctx context.Context, sessionID, sourceID, targetID string) (*ActionResult, error)
	AttachToWall(ctx context.Context, sessionID, furnitureID string, hit engine.WallHit) (*ActionResult, error)
	DetachFromWall(ctx context.Context, sessionID, furnitureID string, pos engine.HalfCell) (*ActionResult, error)

	// Offers and progression
	SelectOffer(ctx context.Context, sessionID string, index int) (*ActionResult, error)
	PlaceSelection(ctx context.Context, sessionID string, pos engine.HalfCell, rotation int) (*ActionResult, error)
	CancelSelection(ctx context.Context, sessionID string) (*ActionResult, error)
	ApplyEnhancement(ctx context.Context, sessionID string, enh engine.Enhancement, targetID string) (*ActionResult, error)
	RequestExpansion(ctx context.Context, sessionID string, cell engine.GridCell) (*ActionResult, error)
	EndTurn(ctx context.Context, sessionID string) (*TurnResult, error)
	Retry(ctx context.Context, sessionID string) (*ActionResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles rule set loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session. The game service is the
// engine's single owner and serializes requests with the session's own
// lock, so sessions never wait on each other.
type Session struct {
	ID        string
	Engine    *engine.GameEngine
	Config    *engine.GameConfig
	CreatedAt time.Time

	mu sync.Mutex

	stampMu    sync.Mutex
	lastAccess time.Time
}

// NewSession wraps eng as session id, stamped as accessed now
func NewSession(id string, eng *engine.GameEngine, config *engine.GameConfig) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Engine:     eng,
		Config:     config,
		CreatedAt:  now,
		lastAccess: now,
	}
}

// Touch stamps the session as accessed now
func (s *Session) Touch() {
	s.TouchAt(time.Now())
}

// TouchAt sets the access stamp to t
func (s *Session) TouchAt(t time.Time) {
	s.stampMu.Lock()
	s.lastAccess = t
	s.stampMu.Unlock()
}

// LastAccessedAt returns the access stamp
func (s *Session) LastAccessedAt() time.Time {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	return s.lastAccess
}
