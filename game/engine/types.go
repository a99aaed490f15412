package engine

import (
	"strings"
	"time"
)

// Category tags furniture for storage filters and synergy
type Category string

const (
	CategoryNone    Category = "none"
	CategoryFood    Category = "food"
	CategoryClothes Category = "clothes"
	CategoryBook    Category = "book"
	CategoryToy     Category = "toy"
)

// Kind distinguishes plain, storage and wall-mountable furniture
type Kind string

const (
	KindNormal  Kind = "normal"
	KindStorage Kind = "storage"
	KindWall    Kind = "wall"
)

// PlacementState is where a furniture instance currently lives
type PlacementState string

const (
	StateUnplaced  PlacementState = "unplaced"
	StateFloor     PlacementState = "floor"
	StateStored    PlacementState = "stored"
	StateWall      PlacementState = "wall"
	StateDestroyed PlacementState = "destroyed"
)

// Phase is the interaction phase of a game session
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseAwaitingPlacement Phase = "awaiting_placement"
	PhaseAwaitingExpansion Phase = "awaiting_expansion"
	PhaseGameOver          Phase = "game_over"
	PhaseVictory           Phase = "victory"
)

// Transition is the outcome of the round threshold check at the end of a turn
type Transition string

const (
	TransitionNone         Transition = "none"
	TransitionRoundCleared Transition = "round_cleared"
	TransitionStageCleared Transition = "stage_cleared"
	TransitionVictory      Transition = "victory"
	TransitionGameOver     Transition = "game_over"
)

const (
	// Validation constants
	MinGridSize     = 2
	MaxGridSize     = 40
	MaxRotation     = 4
	DefaultCapacity = 2

	DefaultActionPoints     = 3
	DefaultSynergyBonus     = 2
	DefaultEnhancementBoost = 1
	DefaultOfferCount       = 3
	DefaultMinWallSpan      = 1.0
	MaxHistoryEntries       = 500
)

var validCategories = map[Category]bool{
	CategoryNone: true, CategoryFood: true, CategoryClothes: true, CategoryBook: true, CategoryToy: true,
}

var validKinds = map[Kind]bool{KindNormal: true, KindStorage: true, KindWall: true}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool { return validCategories[c] }

// IsValid reports whether k is a known kind
func (k Kind) IsValid() bool { return validKinds[k] }

// IsTerminal reports whether the phase only accepts Retry
func (p Phase) IsTerminal() bool {
	return p == PhaseGameOver || p == PhaseVictory
}

// WallMount records where a wall furniture hangs.
// Along and Elevation are wall-local coordinates in grid units.
type WallMount struct {
	Side      WallSide `json:"side"`
	Line      int      `json:"line"`
	Along     float64  `json:"along"`
	Elevation float64  `json:"elevation"`
}

// Furniture is a single furniture instance owned by a GameEngine
type Furniture struct {
	ID         string
	Name       string
	Footprint  Footprint
	Rotation   int
	Pos        HalfCell
	Category   Category
	Kind       Kind
	Height     float64
	HappyValue int
	MergeLevel int
	BonusAP    int
	Capacity   int
	Accepts    []Category
	Fixed      bool
	Stored     []*Furniture
	Wall       *WallMount
	State      PlacementState

	container *Furniture
}

// OccupiedHalfCells returns the half-cells covered at the current position
func (f *Furniture) OccupiedHalfCells() []HalfCell {
	return OccupiedHalfCells(f.Footprint, f.Rotation, f.Pos)
}

// OccupiedHalfCellsAt returns the half-cells covered if f sat at pos
func (f *Furniture) OccupiedHalfCellsAt(pos HalfCell) []HalfCell {
	return OccupiedHalfCells(f.Footprint, f.Rotation, pos)
}

// EffectiveSize returns the rotated bounding size in grid cells
func (f *Furniture) EffectiveSize() (int, int) {
	return EffectiveSize(f.Footprint, f.Rotation)
}

// MergeKey returns the normalized display name used for merge compatibility
func (f *Furniture) MergeKey() string {
	return MergeKey(f.Name)
}

// MergeKey normalizes a display name: trimmed, inner whitespace collapsed, case-folded
func MergeKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// AcceptsCategory reports whether a storage furniture takes items of category c.
// An empty filter accepts everything.
func (f *Furniture) AcceptsCategory(c Category) bool {
	if len(f.Accepts) == 0 {
		return true
	}
	for _, a := range f.Accepts {
		if a == c {
			return true
		}
	}
	return false
}

// IsFull reports whether a storage furniture has no free slot
func (f *Furniture) IsFull() bool {
	return len(f.Stored) >= f.capacity()
}

func (f *Furniture) capacity() int {
	if f.Capacity <= 0 {
		return DefaultCapacity
	}
	return f.Capacity
}

// IsLive reports whether the instance still takes part in the game
func (f *Furniture) IsLive() bool {
	return f.State == StateFloor || f.State == StateWall || f.State == StateStored
}

// FurnitureTemplate is a catalog entry furniture instances are created from
type FurnitureTemplate struct {
	Name       string     `json:"name" yaml:"name"`
	Footprint  Footprint  `json:"footprint" yaml:"footprint"`
	Category   Category   `json:"category,omitempty" yaml:"category,omitempty"`
	Kind       Kind       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Height     float64    `json:"height,omitempty" yaml:"height,omitempty"`
	HappyValue int        `json:"happy_value" yaml:"happy_value"`
	BonusAP    int        `json:"bonus_ap,omitempty" yaml:"bonus_ap,omitempty"`
	Capacity   int        `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Accepts    []Category `json:"accepts,omitempty" yaml:"accepts,omitempty"`
}

// Instantiate creates an unplaced furniture instance from the template
func (t FurnitureTemplate) Instantiate(id string) *Furniture {
	f := &Furniture{
		ID:         id,
		Name:       t.Name,
		Footprint:  t.Footprint.Normalized(),
		Category:   t.Category,
		Kind:       t.Kind,
		Height:     t.Height,
		HappyValue: t.HappyValue,
		BonusAP:    t.BonusAP,
		Capacity:   t.Capacity,
		Accepts:    append([]Category(nil), t.Accepts...),
		State:      StateUnplaced,
	}
	if f.Category == "" {
		f.Category = CategoryNone
	}
	if f.Kind == "" {
		f.Kind = KindNormal
	}
	if f.Kind == KindStorage && f.Capacity <= 0 {
		f.Capacity = DefaultCapacity
	}
	return f
}

// Delivery is a scheduled furniture spawn with a countdown
type Delivery struct {
	ID        string
	Template  FurnitureTemplate
	Target    HalfCell
	Rotation  int
	TurnsLeft int
}

// OccupiedHalfCells returns the half-cells the delivery will overwrite
func (d *Delivery) OccupiedHalfCells() []HalfCell {
	return OccupiedHalfCells(d.Template.Footprint, d.Rotation, d.Target)
}

// FurnitureView is a detached copy of a furniture instance for snapshots
type FurnitureView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Footprint  Footprint       `json:"footprint"`
	Rotation   int             `json:"rotation"`
	Pos        HalfCell        `json:"pos"`
	Width      int             `json:"width"`
	Depth      int             `json:"depth"`
	Category   Category        `json:"category"`
	Kind       Kind            `json:"kind"`
	Height     float64         `json:"height,omitempty"`
	HappyValue int             `json:"happy_value"`
	MergeLevel int             `json:"merge_level"`
	BonusAP    int             `json:"bonus_ap,omitempty"`
	Capacity   int             `json:"capacity,omitempty"`
	Accepts    []Category      `json:"accepts,omitempty"`
	Fixed      bool            `json:"fixed,omitempty"`
	State      PlacementState  `json:"state"`
	Wall       *WallMount      `json:"wall,omitempty"`
	Stored     []FurnitureView `json:"stored,omitempty"`
}

// DeliveryView is a detached copy of a pending delivery
type DeliveryView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Footprint Footprint  `json:"footprint"`
	Target    HalfCell   `json:"target"`
	Rotation  int        `json:"rotation"`
	TurnsLeft int        `json:"turns_left"`
	Cells     []HalfCell `json:"cells"`
}

// HappyEntry is one furniture's contribution to a turn's Happy
type HappyEntry struct {
	FurnitureID string   `json:"furniture_id"`
	Name        string   `json:"name"`
	Pos         HalfCell `json:"pos"`
	Base        int      `json:"base"`
	Stored      int      `json:"stored,omitempty"`
	Synergy     int      `json:"synergy,omitempty"`
	Amount      int      `json:"amount"`
}

// GameOverInfo records the missed threshold
type GameOverInfo struct {
	Required int `json:"required"`
	Actual   int `json:"actual"`
	Stage    int `json:"stage"`
	Round    int `json:"round"`
}

// GameState is a snapshot of a session, safe to hand to other goroutines
type GameState struct {
	Phase               Phase               `json:"phase"`
	StageIndex          int                 `json:"stage_index"`
	StageCount          int                 `json:"stage_count"`
	StageName           string              `json:"stage_name"`
	RoundIndex          int                 `json:"round_index"`
	RoundCount          int                 `json:"round_count"`
	Turn                int                 `json:"turn"`
	RoundTurn           int                 `json:"round_turn"`
	TurnsInRound        int                 `json:"turns_in_round"`
	RequiredHappy       int                 `json:"required_happy"`
	Happy               int                 `json:"happy"`
	ActionPoints        int                 `json:"action_points"`
	ValidCells          []GridCell          `json:"valid_cells"`
	ValidHalfCells      []HalfCell          `json:"valid_half_cells"`
	Furniture           []FurnitureView     `json:"furniture"`
	Deliveries          []DeliveryView      `json:"deliveries"`
	Walls               []WallSpan          `json:"walls"`
	ExpansionCandidates []GridCell          `json:"expansion_candidates,omitempty"`
	Offers              []FurnitureTemplate `json:"offers,omitempty"`
	Selection           *FurnitureTemplate  `json:"selection,omitempty"`
	PendingEnhancements int                 `json:"pending_enhancements"`
	Breakdown           []HappyEntry        `json:"breakdown"`
	LastBreakdown       []HappyEntry        `json:"last_breakdown,omitempty"`
	GameOver            *GameOverInfo       `json:"game_over,omitempty"`
	Victory             bool                `json:"victory,omitempty"`
	Message             string              `json:"message"`
}

// ActionHistoryEntry records one request handled by the engine
type ActionHistoryEntry struct {
	Seq          int       `json:"seq"`
	Action       string    `json:"action"`
	FurnitureID  string    `json:"furniture_id,omitempty"`
	OtherID      string    `json:"other_id,omitempty"`
	Target       *HalfCell `json:"target,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error,omitempty"`
	Turn         int       `json:"turn"`
	ActionPoints int       `json:"action_points"`
	Happy        int       `json:"happy"`
	Timestamp    time.Time `json:"timestamp"`
}
