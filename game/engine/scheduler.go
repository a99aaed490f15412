package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// randomTargetAttempts bounds the random probing before falling back to a scan
const randomTargetAttempts = 32

// EndTurn scores the room, resolves due deliveries, advances the counters and
// runs the round threshold check, in that order. It always completes; the
// report says which transition fired.
func (e *GameEngine) EndTurn() TurnReport {
	report := e.endTurn()
	e.record("end_turn", "", "", nil, report.Result)
	return report
}

func (e *GameEngine) endTurn() TurnReport {
	if e.phase.IsTerminal() {
		return TurnReport{Result: failed(ErrGameOver), Transition: TransitionNone}
	}
	if e.phase == PhaseAwaitingExpansion {
		return TurnReport{
			Result:     failed(fmt.Errorf("%w: choose an expansion cell first", ErrWrongPhase)),
			Transition: TransitionNone,
		}
	}

	// Score the room as it stands before anything arrives.
	breakdown := e.breakdown()
	scored := HappyTotal(breakdown)
	e.happy += scored
	e.lastBreakdown = breakdown
	report := TurnReport{Result: succeeded(OutcomeTurnEnded), Scored: scored, Breakdown: breakdown}

	report.Delivered, report.Destroyed = e.resolveDeliveries()

	e.turn++
	e.roundTurn++
	e.selection = nil

	report.Transition = e.checkThreshold()
	report.GameOver = e.gameOver
	if e.phase.IsTerminal() {
		e.offers = nil
		return report
	}

	if every := e.config.AutoDelivery.Every; every > 0 && e.turn%every == 0 {
		turns := e.config.AutoDelivery.MinTurns
		if spread := e.config.AutoDelivery.MaxTurns - turns; spread > 0 {
			turns += e.rng.Intn(spread + 1)
		}
		t := e.config.Catalog[e.rng.Intn(len(e.config.Catalog))]
		if _, err := e.AddDelivery(t, turns); err != nil {
			report.Undelivered = append(report.Undelivered, t.Name)
			if report.Transition == TransitionNone {
				e.message = fmt.Sprintf("The %s delivery was turned away: it fits nowhere in the room", t.Name)
			}
		}
	}

	e.phase = PhaseIdle
	e.refreshActionPoints()
	e.rollOffers()
	return report
}

// resolveDeliveries counts every delivery down and lands those that reach
// zero, in queue order. Floor furniture under a landing piece is destroyed.
func (e *GameEngine) resolveDeliveries() (delivered, destroyed []string) {
	var pending []*Delivery
	for _, d := range e.deliveries {
		d.TurnsLeft--
		if d.TurnsLeft > 0 {
			pending = append(pending, d)
			continue
		}
		cells := d.OccupiedHalfCells()
		if !e.grid.IsValidRegion(cells) {
			continue
		}
		for _, victim := range e.grid.Overlapping(cells, nil) {
			destroyed = append(destroyed, victim.ID)
			for _, s := range victim.Stored {
				destroyed = append(destroyed, s.ID)
			}
			destroy(e.grid, victim)
		}
		f := d.Template.Instantiate(d.ID)
		f.Rotation = d.Rotation
		f.Pos = d.Target
		f.State = StateFloor
		e.grid.AddActive(f)
		e.index[f.ID] = f
		delivered = append(delivered, f.ID)
	}
	e.deliveries = pending
	return delivered, destroyed
}

// checkThreshold fires exactly one transition once the round's turn count
// is reached
func (e *GameEngine) checkThreshold() Transition {
	stage := e.config.Stages[e.stage]
	round := stage.Rounds[e.round]
	if e.roundTurn < round.Turns {
		return TransitionNone
	}

	if e.happy < round.RequiredHappy {
		e.gameOver = &GameOverInfo{
			Required: round.RequiredHappy,
			Actual:   e.happy,
			Stage:    e.stage,
			Round:    e.round,
		}
		e.phase = PhaseGameOver
		e.message = fmt.Sprintf(e.config.Messages.GameOver, round.RequiredHappy, e.happy)
		return TransitionGameOver
	}

	if e.round+1 < len(stage.Rounds) {
		e.round++
		e.roundTurn = 0
		e.enhancements++
		e.message = e.config.Messages.RoundCleared
		return TransitionRoundCleared
	}
	if e.stage+1 < len(e.config.Stages) {
		e.loadStage(e.stage + 1)
		e.enhancements++
		e.message = fmt.Sprintf(e.config.Messages.StageCleared, e.config.Stages[e.stage].Name)
		return TransitionStageCleared
	}
	e.phase = PhaseVictory
	e.message = e.config.Messages.Victory
	return TransitionVictory
}

// AddDelivery schedules template to land in turns turns at a random spot
// inside the room, preferring free floor
func (e *GameEngine) AddDelivery(t FurnitureTemplate, turns int) (*Delivery, error) {
	pos, ok := e.randomTarget(t.Footprint, 0)
	if !ok {
		return nil, fmt.Errorf("%w: no room for %s", ErrInvalidPlacement, t.Name)
	}
	return e.enqueue(t, pos, 0, turns), nil
}

func (e *GameEngine) enqueue(t FurnitureTemplate, pos HalfCell, rotation, turns int) *Delivery {
	if turns < 1 {
		turns = 1
	}
	d := &Delivery{
		ID:        uuid.NewString(),
		Template:  t,
		Target:    pos,
		Rotation:  rotation,
		TurnsLeft: turns,
	}
	e.deliveries = append(e.deliveries, d)
	return d
}

// randomTarget probes random cell origins, then scans row-major: free spots
// first, then any spot inside the room
func (e *GameEngine) randomTarget(fp Footprint, rotation int) (HalfCell, bool) {
	cells := e.grid.ValidCells()
	if len(cells) == 0 {
		return HalfCell{}, false
	}
	fits := func(pos HalfCell, free bool) bool {
		occ := OccupiedHalfCells(fp, rotation, pos)
		return e.grid.IsValidRegion(occ) && (!free || e.grid.IsFree(occ, nil))
	}
	for i := 0; i < randomTargetAttempts; i++ {
		pos := cells[e.rng.Intn(len(cells))].Origin()
		if fits(pos, true) {
			return pos, true
		}
	}
	for _, free := range []bool{true, false} {
		for _, c := range cells {
			if fits(c.Origin(), free) {
				return c.Origin(), true
			}
		}
	}
	return HalfCell{}, false
}

// loadStage replaces the room with stage i and its initial furniture.
// Pending deliveries belong to the old room and are dropped.
func (e *GameEngine) loadStage(i int) {
	stage := e.config.Stages[i]
	e.stage = i
	e.round = 0
	e.roundTurn = 0
	e.grid = NewGrid(stage.Width, stage.Height)
	e.index = make(map[string]*Furniture)
	e.wallItems = nil
	e.deliveries = nil

	for _, p := range stage.Furniture {
		t, ok := e.config.Template(p.Template)
		if !ok {
			continue
		}
		if f, err := e.PlaceNew(t, p.Pos.Origin(), p.Rotation); err == nil {
			f.Fixed = p.Fixed
		}
	}
	e.placeObstacles(stage.Obstacles)
	e.walls = DeriveWalls(e.grid, e.config.MinWallSpan)
}

func (e *GameEngine) placeObstacles(n int) {
	for i := 0; i < n; i++ {
		pos, ok := e.randomTarget(obstacleTemplate.Footprint, 0)
		if !ok || !e.grid.IsFree(OccupiedHalfCells(obstacleTemplate.Footprint, 0, pos), nil) {
			return
		}
		if f, err := e.PlaceNew(obstacleTemplate, pos, 0); err == nil {
			f.Fixed = true
		}
	}
}

// refreshActionPoints grants the per-turn allowance plus every live piece's
// permanent bonus
func (e *GameEngine) refreshActionPoints() {
	ap := e.config.BaseActionPoints
	for _, f := range e.index {
		if f.IsLive() {
			ap += f.BonusAP
		}
	}
	e.ap = ap
}

func (e *GameEngine) rollOffers() {
	n := min(e.config.OfferCount, len(e.config.Catalog))
	e.offers = e.offers[:0]
	for _, i := range e.rng.Perm(len(e.config.Catalog))[:n] {
		e.offers = append(e.offers, e.config.Catalog[i])
	}
}

// livePieces lists floor pieces in placement order followed by wall pieces
func (e *GameEngine) livePieces() []*Furniture {
	return append(e.grid.Active(), e.wallItems...)
}

func (e *GameEngine) breakdown() []HappyEntry {
	return ComputeHappyBreakdown(e.livePieces(), e.config.Synergy())
}
