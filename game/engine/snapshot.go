package engine

// GetState returns a deep copy of everything a front-end needs to draw the
// session. The Breakdown field projects the next EndTurn's scoring.
func (e *GameEngine) GetState() *GameState {
	stage := e.config.Stages[e.stage]
	round := stage.Rounds[e.round]

	state := &GameState{
		Phase:               e.phase,
		StageIndex:          e.stage,
		StageCount:          len(e.config.Stages),
		StageName:           stage.Name,
		RoundIndex:          e.round,
		RoundCount:          len(stage.Rounds),
		Turn:                e.turn,
		RoundTurn:           e.roundTurn,
		TurnsInRound:        round.Turns,
		RequiredHappy:       round.RequiredHappy,
		Happy:               e.happy,
		ActionPoints:        e.ap,
		ValidCells:          e.grid.ValidCells(),
		ValidHalfCells:      e.grid.ValidHalfCells(),
		Furniture:           []FurnitureView{},
		Deliveries:          []DeliveryView{},
		Walls:               append([]WallSpan{}, e.walls...),
		Offers:              append([]FurnitureTemplate(nil), e.offers...),
		PendingEnhancements: e.enhancements,
		Breakdown:           e.breakdown(),
		LastBreakdown:       append([]HappyEntry(nil), e.lastBreakdown...),
		Victory:             e.phase == PhaseVictory,
		Message:             e.message,
	}
	for _, f := range e.livePieces() {
		state.Furniture = append(state.Furniture, viewOf(f))
	}
	for _, d := range e.deliveries {
		state.Deliveries = append(state.Deliveries, DeliveryView{
			ID:        d.ID,
			Name:      d.Template.Name,
			Footprint: d.Template.Footprint.Normalized(),
			Target:    d.Target,
			Rotation:  d.Rotation,
			TurnsLeft: d.TurnsLeft,
			Cells:     d.OccupiedHalfCells(),
		})
	}
	if e.selection != nil {
		sel := *e.selection
		state.Selection = &sel
	}
	if e.gameOver != nil {
		info := *e.gameOver
		state.GameOver = &info
	}
	if e.phase == PhaseAwaitingExpansion {
		state.ExpansionCandidates = ComputeExpansionCandidates(e.grid)
	}
	return state
}

func viewOf(f *Furniture) FurnitureView {
	w, d := f.EffectiveSize()
	v := FurnitureView{
		ID:         f.ID,
		Name:       f.Name,
		Footprint:  f.Footprint,
		Rotation:   f.Rotation,
		Pos:        f.Pos,
		Width:      w,
		Depth:      d,
		Category:   f.Category,
		Kind:       f.Kind,
		Height:     f.Height,
		HappyValue: f.HappyValue,
		MergeLevel: f.MergeLevel,
		BonusAP:    f.BonusAP,
		Capacity:   f.Capacity,
		Accepts:    append([]Category(nil), f.Accepts...),
		Fixed:      f.Fixed,
		State:      f.State,
	}
	v.Footprint.Cells = append([]GridCell(nil), f.Footprint.Cells...)
	if f.Wall != nil {
		mount := *f.Wall
		v.Wall = &mount
	}
	for _, s := range f.Stored {
		v.Stored = append(v.Stored, viewOf(s))
	}
	return v
}
