package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Furniture requests
	Move(id string, pos HalfCell) Result
	Rotate(id string) Result
	Store(itemID, storageID string) Result
	TakeOut(id string, pos HalfCell) Result
	Merge(sourceID, targetID string) Result
	AttachToWall(id string, hit WallHit) Result
	DetachFromWall(id string, pos HalfCell) Result

	// Offers and deliveries
	SelectOffer(index int) Result
	PlaceSelection(pos HalfCell, rotation int) Result
	CancelSelection() Result

	// Progression
	ApplyEnhancement(e Enhancement, targetID string) Result
	RequestExpansion(cell GridCell) Result
	EndTurn() TurnReport
	Retry() Result

	// State
	GetState() *GameState
	GetConfig() *GameConfig
	GetActionHistory() []ActionHistoryEntry
	IsGameOver() bool
	IsVictory() bool
}

// TurnReport is the outcome of EndTurn. Breakdown is the scored pre-delivery
// state; Delivered and Destroyed list furniture IDs in resolution order.
type TurnReport struct {
	Result
	Scored    int          `json:"scored"`
	Breakdown []HappyEntry `json:"breakdown"`
	Delivered []string     `json:"delivered,omitempty"`
	Destroyed []string     `json:"destroyed,omitempty"`
	// Undelivered names auto-deliveries that found no spot in the room
	Undelivered []string      `json:"undelivered,omitempty"`
	Transition  Transition    `json:"transition"`
	GameOver    *GameOverInfo `json:"game_over,omitempty"`
}

// GameEngine is one game session's world. It is not safe for concurrent use;
// the owner serializes every call.
type GameEngine struct {
	config *GameConfig
	rng    *rand.Rand

	grid       *Grid
	index      map[string]*Furniture
	wallItems  []*Furniture
	deliveries []*Delivery
	walls      []WallSpan

	stage     int
	round     int
	turn      int
	roundTurn int
	happy     int
	ap        int
	phase     Phase

	offers        []FurnitureTemplate
	selection     *FurnitureTemplate
	enhancements  int
	lastBreakdown []HappyEntry
	gameOver      *GameOverInfo
	message       string

	history []ActionHistoryEntry
	seq     int
}

// NewEngine creates a new game engine with the provided configuration.
// A nil config uses DefaultConfig; a zero Seed seeds from the clock.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &GameEngine{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
	e.reset()
	return e, nil
}

// NewEngineWithDefaults creates a new game engine with the built-in rule set
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(nil)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return e
}

// GetConfig returns the rule set the engine plays
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// IsGameOver reports whether a round threshold was missed
func (e *GameEngine) IsGameOver() bool {
	return e.phase == PhaseGameOver
}

// IsVictory reports whether the last stage was cleared
func (e *GameEngine) IsVictory() bool {
	return e.phase == PhaseVictory
}

// Phase returns the current interaction phase
func (e *GameEngine) Phase() Phase {
	return e.phase
}

// Move drops a piece at pos. A compatible storage under the target takes the
// piece instead; otherwise a floor piece is repositioned, a stored piece is
// taken out and a wall piece is detached.
func (e *GameEngine) Move(id string, pos HalfCell) Result {
	res := e.move(id, pos)
	e.record("move", id, "", &pos, res)
	return res
}

func (e *GameEngine) move(id string, pos HalfCell) Result {
	f, err := e.lookup(id)
	if err != nil {
		return failed(err)
	}
	if err := e.guard(true); err != nil {
		return failed(err)
	}
	if f.Fixed {
		return failed(fmt.Errorf("%w: %s", ErrFixedFurniture, f.Name))
	}
	if f.State == StateFloor && f.Pos == pos {
		return succeeded(OutcomeMoved)
	}

	var rejected []error
	storage, rejection := StorageAt(e.grid, f, pos)
	if storage != nil {
		if res := e.storeInto(f, storage); res.OK() {
			return res
		}
	}
	if rejection != nil {
		rejected = append(rejected, rejection)
	}

	var res Result
	switch f.State {
	case StateStored:
		res = e.resultOf(TakeOut(e.grid, f, pos), OutcomeTakenOut)
	case StateWall:
		res = e.detach(f, pos)
	default:
		if !ValidatePlacement(e.grid, f, pos, f.Rotation) {
			res = failed(fmt.Errorf("%w: %s does not fit at (%d,%d)", ErrInvalidPlacement, f.Name, pos.X, pos.Y))
		} else {
			f.Pos = pos
			e.spend()
			res = succeeded(OutcomeMoved)
		}
	}
	res.Rejected = append(rejected, res.Rejected...)
	return res
}

// Rotate turns a piece a quarter turn in place. A floor piece whose new
// footprint no longer fits keeps its old rotation. Rotation is free.
func (e *GameEngine) Rotate(id string) Result {
	res := e.rotate(id)
	e.record("rotate", id, "", nil, res)
	return res
}

func (e *GameEngine) rotate(id string) Result {
	f, err := e.lookup(id)
	if err != nil {
		return failed(err)
	}
	if err := e.guard(false); err != nil {
		return failed(err)
	}
	if f.Fixed {
		return failed(fmt.Errorf("%w: %s", ErrFixedFurniture, f.Name))
	}

	prev := f.Rotation
	Rotate(f)
	switch f.State {
	case StateFloor:
		if !ValidatePlacement(e.grid, f, f.Pos, f.Rotation) {
			f.Rotation = prev
			return failed(fmt.Errorf("%w: %s cannot turn at (%d,%d)", ErrInvalidPlacement, f.Name, f.Pos.X, f.Pos.Y))
		}
	case StateWall:
		if !WallSupported(e.walls, f) || !ValidateWallPlacement(e.grid, e.wallItems, f) {
			f.Rotation = prev
			return failed(fmt.Errorf("%w: %s cannot turn on the wall", ErrWallPlacementRejected, f.Name))
		}
	}
	return succeeded(OutcomeRotated)
}

// Store puts an item into a storage piece
func (e *GameEngine) Store(itemID, storageID string) Result {
	res := e.store(itemID, storageID)
	e.record("store", itemID, storageID, nil, res)
	return res
}

func (e *GameEngine) store(itemID, storageID string) Result {
	item, err := e.lookup(itemID)
	if err != nil {
		return failed(err)
	}
	storage, err := e.lookup(storageID)
	if err != nil {
		return failed(err)
	}
	if err := e.guard(true); err != nil {
		return failed(err)
	}
	return e.storeInto(item, storage)
}

func (e *GameEngine) storeInto(item, storage *Furniture) Result {
	wasWall := item.State == StateWall
	if err := StoreInto(e.grid, item, storage); err != nil {
		return failed(err)
	}
	if wasWall {
		e.forgetWallItem(item)
	}
	e.spend()
	return succeeded(OutcomeStored)
}

// TakeOut moves a stored item back to the floor at pos
func (e *GameEngine) TakeOut(id string, pos HalfCell) Result {
	res := e.takeOut(id, pos)
	e.record("take_out", id, "", &pos, res)
	return res
}

func (e *GameEngine) takeOut(id string, pos HalfCell) Result {
	f, err := e.lookup(id)
	if err != nil {
		return failed(err)
	}
	if err := e.guard(true); err != nil {
		return failed(err)
	}
	return e.resultOf(TakeOut(e.grid, f, pos), OutcomeTakenOut)
}

// Merge combines source into target. An incompatible pair falls through to
// moving source onto target's position.
func (e *GameEngine) Merge(sourceID, targetID string) Result {
	res := e.merge(sourceID, targetID)
	e.record("merge", sourceID, targetID, nil, res)
	return res
}

func (e *GameEngine) merge(sourceID, targetID string) Result {
	source, err := e.lookup(sourceID)
	if err != nil {
		return failed(err)
	}
	target, err := e.lookup(targetID)
	if err != nil {
		return failed(err)
	}
	if err := e.guard(true); err != nil {
		return failed(err)
	}

	lost, err := Merge(e.grid, source, target)
	if err == nil {
		e.spend()
		e.message = fmt.Sprintf("%s reached level %d", target.Name, target.MergeLevel)
		if len(lost) > 0 {
			names := make([]string, len(lost))
			for i, f := range lost {
				names[i] = f.ID
			}
			e.message += fmt.Sprintf("; no room for %s", strings.Join(names, ", "))
		}
		return succeeded(OutcomeMerged)
	}
	if !errors.Is(err, ErrMergeIncompatible) {
		return failed(err)
	}
	res := e.move(sourceID, target.Pos)
	res.Rejected = append([]error{err}, res.Rejected...)
	return res
}

// AttachToWall hangs a wall piece at hit. The attach is reverted when the
// mount is blocked.
func (e *GameEngine) AttachToWall(id string, hit WallHit) Result {
	res := e.attach(id, hit)
	e.record("attach", id, "", nil, res)
	return res
}

func (e *GameEngine) attach(id string, hit WallHit) Result {
	f, err := e.lookup(id)
	if err != nil {
		return failed(err)
	}
	if err := e.guard(true); err != nil {
		return failed(err)
	}
	if f.Fixed {
		return failed(fmt.Errorf("%w: %s", ErrFixedFurniture, f.Name))
	}
	if f.State != StateFloor && f.State != StateWall {
		return failed(fmt.Errorf("%w: %s must be on the floor first", ErrWallPlacementRejected, f.Name))
	}

	prevState, prevWall := f.State, f.Wall
	at := e.grid.IndexOf(f)
	if err := AttachToWall(e.grid, e.walls, f, hit); err != nil {
		return failed(err)
	}
	if !ValidateWallPlacement(e.grid, e.wallItems, f) {
		mount := *f.Wall
		f.State, f.Wall = prevState, prevWall
		if prevState == StateFloor {
			e.grid.InsertActive(at, f)
		}
		return failed(fmt.Errorf("%w: %s is blocked at %.1f/%.2f on %s",
			ErrWallPlacementRejected, f.Name, mount.Along, mount.Elevation, mount.Side))
	}
	if prevState == StateFloor {
		e.wallItems = append(e.wallItems, f)
	}
	e.spend()
	return succeeded(OutcomeAttached)
}

// DetachFromWall puts a wall piece back on the floor at pos
func (e *GameEngine) DetachFromWall(id string, pos HalfCell) Result {
	res := e.detachByID(id, pos)
	e.record("detach", id, "", &pos, res)
	return res
}

func (e *GameEngine) detachByID(id string, pos HalfCell) Result {
	f, err := e.lookup(id)
	if err != nil {
		return failed(err)
	}
	if err := e.guard(true); err != nil {
		return failed(err)
	}
	return e.detach(f, pos)
}

func (e *GameEngine) detach(f *Furniture, pos HalfCell) Result {
	if err := DetachFromWall(e.grid, f, pos); err != nil {
		return failed(err)
	}
	e.forgetWallItem(f)
	e.spend()
	return succeeded(OutcomeDetached)
}

// SelectOffer picks one of this turn's offers for placement
func (e *GameEngine) SelectOffer(index int) Result {
	res := e.selectOffer(index)
	e.record("select_offer", "", "", nil, res)
	return res
}

func (e *GameEngine) selectOffer(index int) Result {
	if err := e.guard(false); err != nil {
		return failed(err)
	}
	if index < 0 || index >= len(e.offers) {
		return failed(fmt.Errorf("%w: %d of %d", ErrInvalidOffer, index, len(e.offers)))
	}
	t := e.offers[index]
	e.selection = &t
	e.phase = PhaseAwaitingPlacement
	e.message = fmt.Sprintf("Choose where the %s goes", t.Name)
	return succeeded(OutcomeSelected)
}

// PlaceSelection schedules the selected offer for delivery at pos next turn.
// The target must lie inside the room; whatever sits there on arrival is
// destroyed.
func (e *GameEngine) PlaceSelection(pos HalfCell, rotation int) Result {
	res := e.placeSelection(pos, rotation)
	e.record("place_selection", "", "", &pos, res)
	return res
}

func (e *GameEngine) placeSelection(pos HalfCell, rotation int) Result {
	if e.phase.IsTerminal() {
		return failed(ErrGameOver)
	}
	if e.phase != PhaseAwaitingPlacement || e.selection == nil {
		return failed(fmt.Errorf("%w: nothing selected", ErrWrongPhase))
	}
	rotation = normRotation(rotation)
	cells := OccupiedHalfCells(e.selection.Footprint, rotation, pos)
	if !e.grid.IsValidRegion(cells) {
		return failed(fmt.Errorf("%w: %s does not fit inside the room at (%d,%d)",
			ErrInvalidPlacement, e.selection.Name, pos.X, pos.Y))
	}
	e.enqueue(*e.selection, pos, rotation, 1)
	e.message = fmt.Sprintf("%s arrives next turn", e.selection.Name)
	e.selection = nil
	e.offers = nil
	e.phase = PhaseIdle
	return succeeded(OutcomePlaced)
}

// CancelSelection drops the selected offer and keeps the others available
func (e *GameEngine) CancelSelection() Result {
	res := succeeded(OutcomeCancelled)
	if e.phase != PhaseAwaitingPlacement {
		res = failed(fmt.Errorf("%w: nothing selected", ErrWrongPhase))
	} else {
		e.selection = nil
		e.phase = PhaseIdle
	}
	e.record("cancel_selection", "", "", nil, res)
	return res
}

// ApplyEnhancement spends one pending enhancement. targetID is ignored for
// grid expansion.
func (e *GameEngine) ApplyEnhancement(enh Enhancement, targetID string) Result {
	res := e.applyEnhancement(enh, targetID)
	e.record("enhance:"+string(enh.Kind), targetID, "", nil, res)
	return res
}

func (e *GameEngine) applyEnhancement(enh Enhancement, targetID string) Result {
	if err := e.guard(false); err != nil {
		return failed(err)
	}
	if e.enhancements < 1 {
		return failed(ErrNoEnhancement)
	}
	// The rule set owns the strength; callers only pick the variant.
	enh.Amount = e.config.EnhancementBoost
	var target *Furniture
	if enh.NeedsTarget() {
		f, err := e.lookup(targetID)
		if err != nil {
			return failed(err)
		}
		target = f
	}
	if err := Apply(enh, target, e); err != nil {
		return failed(err)
	}
	e.enhancements--
	if target != nil {
		e.message = fmt.Sprintf("%s: %s", target.Name, enh.Describe())
	}
	return succeeded(OutcomeEnhanced)
}

// BeginExpansion enters expansion selection. Apply calls it for the grid
// expansion enhancement.
func (e *GameEngine) BeginExpansion() error {
	if len(ComputeExpansionCandidates(e.grid)) == 0 {
		return fmt.Errorf("%w: the room cannot grow", ErrNotExpandable)
	}
	e.selection = nil
	e.phase = PhaseAwaitingExpansion
	e.message = e.config.Messages.Expansion
	return nil
}

// RequestExpansion unlocks cell while expansion selection is open. A cell that
// is not a candidate is refused without changing anything.
func (e *GameEngine) RequestExpansion(cell GridCell) Result {
	res := e.requestExpansion(cell)
	origin := cell.Origin()
	e.record("expand", "", "", &origin, res)
	return res
}

func (e *GameEngine) requestExpansion(cell GridCell) Result {
	if e.phase.IsTerminal() {
		return failed(ErrGameOver)
	}
	if e.phase != PhaseAwaitingExpansion {
		return failed(fmt.Errorf("%w: no expansion pending", ErrWrongPhase))
	}
	if !IsExpansionCandidate(e.grid, cell) {
		return failed(fmt.Errorf("%w: (%d,%d)", ErrNotExpandable, cell.X, cell.Y))
	}
	CommitExpansion(e.grid, cell)
	e.refreshWalls()
	e.phase = PhaseIdle
	e.message = fmt.Sprintf("The room grew to include (%d,%d)", cell.X, cell.Y)
	return succeeded(OutcomeExpanded)
}

// Retry restarts the game from the first stage
func (e *GameEngine) Retry() Result {
	e.reset()
	res := succeeded(OutcomeRetried)
	e.record("retry", "", "", nil, res)
	return res
}

// PlaceNew instantiates template on the floor at pos without spending action
// points. It is used for stage setup.
func (e *GameEngine) PlaceNew(t FurnitureTemplate, pos HalfCell, rotation int) (*Furniture, error) {
	f := t.Instantiate(uuid.NewString())
	f.Rotation = normRotation(rotation)
	if !ValidatePlacement(e.grid, f, pos, f.Rotation) {
		return nil, fmt.Errorf("%w: %s does not fit at (%d,%d)", ErrInvalidPlacement, f.Name, pos.X, pos.Y)
	}
	f.Pos = pos
	f.State = StateFloor
	e.grid.AddActive(f)
	e.index[f.ID] = f
	return f, nil
}

// CheckInvariants verifies the grid invariant and that every instance is in
// exactly one place
func (e *GameEngine) CheckInvariants() error {
	if err := e.grid.CheckInvariants(); err != nil {
		return err
	}
	onWall := make(map[*Furniture]bool, len(e.wallItems))
	for _, f := range e.wallItems {
		if f.State != StateWall || f.Wall == nil {
			return fmt.Errorf("furniture %s is listed on a wall but in state %s", f.ID, f.State)
		}
		onWall[f] = true
	}
	for id, f := range e.index {
		active := e.grid.IndexOf(f) >= 0
		switch f.State {
		case StateFloor:
			if !active || onWall[f] || f.container != nil {
				return fmt.Errorf("furniture %s is on the floor but tracked elsewhere", id)
			}
		case StateWall:
			if active || !onWall[f] || f.container != nil {
				return fmt.Errorf("furniture %s is on a wall but tracked elsewhere", id)
			}
		case StateStored:
			if active || onWall[f] || f.container == nil || !contains(f.container.Stored, f) {
				return fmt.Errorf("furniture %s is stored but tracked elsewhere", id)
			}
		case StateDestroyed, StateUnplaced:
			if active || onWall[f] {
				return fmt.Errorf("furniture %s is %s but still tracked", id, f.State)
			}
		}
	}
	return nil
}

// GetActionHistory returns a copy of the recorded requests
func (e *GameEngine) GetActionHistory() []ActionHistoryEntry {
	return append([]ActionHistoryEntry(nil), e.history...)
}

// reset puts the engine at the start of the first stage
func (e *GameEngine) reset() {
	e.happy = 0
	e.turn = 0
	e.enhancements = 0
	e.gameOver = nil
	e.lastBreakdown = nil
	e.selection = nil
	e.loadStage(0)
	e.phase = PhaseIdle
	e.refreshActionPoints()
	e.rollOffers()
	e.message = e.config.Messages.Welcome
}

func (e *GameEngine) lookup(id string) (*Furniture, error) {
	f, ok := e.index[id]
	if !ok || !f.IsLive() {
		return nil, fmt.Errorf("%w: %s", ErrFurnitureNotFound, id)
	}
	return f, nil
}

// guard checks the phase and, for actions that cost one, the action points
func (e *GameEngine) guard(costsAP bool) error {
	if e.phase.IsTerminal() {
		return ErrGameOver
	}
	if e.phase == PhaseAwaitingExpansion {
		return fmt.Errorf("%w: choose an expansion cell first", ErrWrongPhase)
	}
	if costsAP && e.ap < 1 {
		return ErrNoActionPoints
	}
	return nil
}

func (e *GameEngine) spend() {
	e.ap--
}

func (e *GameEngine) resultOf(err error, o Outcome) Result {
	if err != nil {
		return failed(err)
	}
	e.spend()
	return succeeded(o)
}

func (e *GameEngine) forgetWallItem(f *Furniture) {
	for i, w := range e.wallItems {
		if w == f {
			e.wallItems = append(e.wallItems[:i], e.wallItems[i+1:]...)
			return
		}
	}
}

// refreshWalls re-derives the wall spans. Pieces whose span vanished drop to
// the floor beneath them, or are destroyed when that spot is taken.
func (e *GameEngine) refreshWalls() {
	e.walls = DeriveWalls(e.grid, e.config.MinWallSpan)
	var kept []*Furniture
	for _, f := range e.wallItems {
		if WallSupported(e.walls, f) {
			kept = append(kept, f)
			continue
		}
		spot := floorSpotBeneath(f)
		if ValidatePlacement(e.grid, f, spot, f.Rotation) {
			f.Wall = nil
			f.Pos = spot
			f.State = StateFloor
			e.grid.AddActive(f)
			continue
		}
		destroy(e.grid, f)
	}
	e.wallItems = kept
}

func (e *GameEngine) record(action, id, other string, target *HalfCell, res Result) {
	e.seq++
	entry := ActionHistoryEntry{
		Seq:          e.seq,
		Action:       action,
		FurnitureID:  id,
		OtherID:      other,
		Target:       target,
		Outcome:      res.Outcome,
		Turn:         e.turn,
		ActionPoints: e.ap,
		Happy:        e.happy,
		Timestamp:    time.Now(),
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
		e.message = res.Err.Error()
	}
	e.history = append(e.history, entry)
	if len(e.history) > MaxHistoryEntries {
		e.history = e.history[len(e.history)-MaxHistoryEntries:]
	}
}

func contains(list []*Furniture, f *Furniture) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}
