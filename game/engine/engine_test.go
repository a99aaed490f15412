package engine

import (
	"errors"
	"testing"
)

func createTestConfig() *GameConfig {
	config := &GameConfig{
		Name:        "Engine Test Config",
		Description: "Configuration for engine integration tests",
		Seed:        42,
		Catalog: []FurnitureTemplate{
			{Name: "Chair", Footprint: Footprint{Width: 1, Height: 1}, Height: 1, HappyValue: 2},
			{Name: "Table", Footprint: Footprint{Width: 2, Height: 1}, Height: 1, HappyValue: 3},
			{Name: "Apple", Footprint: Footprint{Width: 1, Height: 1}, Category: CategoryFood, HappyValue: 1},
			{Name: "Teddy", Footprint: Footprint{Width: 1, Height: 1}, Category: CategoryToy, HappyValue: 2},
			{Name: "Fridge", Footprint: Footprint{Width: 1, Height: 1}, Kind: KindStorage, Height: 2,
				HappyValue: 1, Capacity: 2, Accepts: []Category{CategoryFood}},
			{Name: "Painting", Footprint: Footprint{Width: 1, Height: 1}, Kind: KindWall, HappyValue: 3},
			{Name: "Lamp", Footprint: Footprint{Width: 1, Height: 1}, Height: 2, HappyValue: 1, BonusAP: 1},
		},
		Stages: []StageConfig{
			{
				Name: "Test Room", Width: 6, Height: 6,
				Rounds: []RoundConfig{{Turns: 2, RequiredHappy: 0}, {Turns: 2, RequiredHappy: 0}},
			},
			{
				Name: "Second Room", Width: 4, Height: 4,
				Rounds: []RoundConfig{{Turns: 1, RequiredHappy: 0}},
			},
		},
	}
	config.ApplyDefaults()
	return config
}

func newTestEngine(t *testing.T) *GameEngine {
	t.Helper()
	e, err := NewEngine(createTestConfig())
	if err != nil {
		t.Fatalf("Expected no error creating engine, got: %v", err)
	}
	return e
}

func placeAt(t *testing.T, e *GameEngine, name string, x, y int) *Furniture {
	t.Helper()
	tmpl, ok := e.config.Template(name)
	if !ok {
		t.Fatalf("Unknown template %s", name)
	}
	f, err := e.PlaceNew(tmpl, GridCell{X: x, Y: y}.Origin(), 0)
	if err != nil {
		t.Fatalf("Expected %s to be placed at (%d,%d), got: %v", name, x, y, err)
	}
	return f
}

func assertInvariants(t *testing.T, e *GameEngine) {
	t.Helper()
	if err := e.CheckInvariants(); err != nil {
		t.Fatalf("Invariant violated: %v", err)
	}
}

func cell(x, y int) HalfCell {
	return GridCell{X: x, Y: y}.Origin()
}

func TestNewEngine(t *testing.T) {
	e := newTestEngine(t)
	state := e.GetState()

	if state.Phase != PhaseIdle {
		t.Errorf("Expected phase idle, got %s", state.Phase)
	}
	if state.ActionPoints != DefaultActionPoints {
		t.Errorf("Expected %d action points, got %d", DefaultActionPoints, state.ActionPoints)
	}
	if len(state.Offers) != DefaultOfferCount {
		t.Errorf("Expected %d offers, got %d", DefaultOfferCount, len(state.Offers))
	}
	if len(state.ValidCells) != 36 {
		t.Errorf("Expected 36 valid cells, got %d", len(state.ValidCells))
	}
	if len(state.Walls) != 2 {
		t.Errorf("Expected 2 walls, got %d", len(state.Walls))
	}
	if state.StageName != "Test Room" || state.StageCount != 2 || state.RoundCount != 2 {
		t.Errorf("Unexpected stage info: %s %d/%d", state.StageName, state.StageCount, state.RoundCount)
	}
	if state.Message != e.config.Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", state.Message)
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.Stages = nil

	if _, err := NewEngine(config); err == nil {
		t.Error("Expected an engine without stages to be rejected")
	}
}

func TestNewEngineWithDefaults(t *testing.T) {
	e := NewEngineWithDefaults()
	state := e.GetState()

	if state.StageCount != 10 {
		t.Errorf("Expected 10 generated stages, got %d", state.StageCount)
	}
	if len(state.ValidCells) != 64 {
		t.Errorf("Expected an 8x8 first room, got %d cells", len(state.ValidCells))
	}
}

func TestMove_Success(t *testing.T) {
	e := newTestEngine(t)
	chair := placeAt(t, e, "Chair", 0, 0)

	res := e.Move(chair.ID, cell(3, 3))
	if !res.OK() || res.Outcome != OutcomeMoved {
		t.Fatalf("Expected move to succeed, got %v (%v)", res.Outcome, res.Err)
	}
	if chair.Pos != cell(3, 3) {
		t.Errorf("Expected chair at %v, got %v", cell(3, 3), chair.Pos)
	}
	if e.ap != DefaultActionPoints-1 {
		t.Errorf("Expected one action point spent, got %d left", e.ap)
	}
	assertInvariants(t, e)
}

func TestMove_Rejected(t *testing.T) {
	e := newTestEngine(t)
	table := placeAt(t, e, "Table", 0, 0)
	placeAt(t, e, "Chair", 3, 3)

	tests := []struct {
		name string
		pos  HalfCell
	}{
		{"outside the room", cell(5, 0)},
		{"negative", cell(-1, 0)},
		{"collision", cell(2, 3)},
		{"half-cell overlap", HalfCell{X: 5, Y: 6}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := e.Move(table.ID, test.pos)
			if res.OK() || !errors.Is(res.Err, ErrInvalidPlacement) {
				t.Errorf("Expected invalid placement, got %v", res.Err)
			}
			if table.Pos != cell(0, 0) {
				t.Errorf("Expected table to stay put, got %v", table.Pos)
			}
			if e.ap != DefaultActionPoints {
				t.Errorf("Expected no action point spent, got %d", e.ap)
			}
			assertInvariants(t, e)
		})
	}
}

func TestMove_PrefersStorage(t *testing.T) {
	e := newTestEngine(t)
	fridge := placeAt(t, e, "Fridge", 0, 0)
	apple := placeAt(t, e, "Apple", 2, 2)

	res := e.Move(apple.ID, cell(0, 0))
	if res.Outcome != OutcomeStored {
		t.Fatalf("Expected apple to be stored, got %v (%v)", res.Outcome, res.Err)
	}
	if apple.State != StateStored || len(fridge.Stored) != 1 {
		t.Errorf("Expected apple inside the fridge, got %s with %d stored", apple.State, len(fridge.Stored))
	}
	assertInvariants(t, e)

	res = e.Move(apple.ID, cell(4, 4))
	if res.Outcome != OutcomeTakenOut || apple.State != StateFloor {
		t.Errorf("Expected moving a stored apple to take it out, got %v", res.Outcome)
	}
	assertInvariants(t, e)
}

func TestMove_StorageRejectedFallsThrough(t *testing.T) {
	e := newTestEngine(t)
	placeAt(t, e, "Fridge", 0, 0)
	teddy := placeAt(t, e, "Teddy", 2, 2)

	res := e.Move(teddy.ID, cell(0, 0))
	if res.OK() {
		t.Fatal("Expected the move to fail")
	}
	if !errors.Is(res.Err, ErrInvalidPlacement) {
		t.Errorf("Expected the final error to be invalid placement, got %v", res.Err)
	}
	if len(res.Rejected) != 1 || !errors.Is(res.Rejected[0], ErrStorageRejected) {
		t.Errorf("Expected the storage rejection to be recorded, got %v", res.Rejected)
	}
	if !res.Is(ErrStorageRejected) {
		t.Error("Expected Result.Is to see the recovered rejection")
	}
	assertInvariants(t, e)
}

func TestMove_NoActionPoints(t *testing.T) {
	e := newTestEngine(t)
	chair := placeAt(t, e, "Chair", 0, 0)

	for i := 1; i <= DefaultActionPoints; i++ {
		if res := e.Move(chair.ID, cell(i, 0)); !res.OK() {
			t.Fatalf("Expected move %d to succeed, got %v", i, res.Err)
		}
	}
	res := e.Move(chair.ID, cell(5, 5))
	if !errors.Is(res.Err, ErrNoActionPoints) {
		t.Errorf("Expected no action points, got %v", res.Err)
	}
}

func TestMove_FixedAndUnknown(t *testing.T) {
	e := newTestEngine(t)
	crate := placeAt(t, e, "Chair", 0, 0)
	crate.Fixed = true

	if res := e.Move(crate.ID, cell(1, 1)); !errors.Is(res.Err, ErrFixedFurniture) {
		t.Errorf("Expected fixed furniture error, got %v", res.Err)
	}
	if res := e.Move("nope", cell(1, 1)); !errors.Is(res.Err, ErrFurnitureNotFound) {
		t.Errorf("Expected not found error, got %v", res.Err)
	}
}

func TestRotate(t *testing.T) {
	e := newTestEngine(t)
	table := placeAt(t, e, "Table", 0, 0)
	edge := placeAt(t, e, "Table", 4, 5)

	if res := e.Rotate(table.ID); !res.OK() || table.Rotation != 1 {
		t.Errorf("Expected rotation to succeed, got %v (rotation %d)", res.Err, table.Rotation)
	}
	if e.ap != DefaultActionPoints {
		t.Errorf("Expected rotation to be free, got %d action points", e.ap)
	}

	res := e.Rotate(edge.ID)
	if !errors.Is(res.Err, ErrInvalidPlacement) {
		t.Errorf("Expected rotation at the edge to fail, got %v", res.Err)
	}
	if edge.Rotation != 0 {
		t.Errorf("Expected rotation to be reverted, got %d", edge.Rotation)
	}
	assertInvariants(t, e)
}

func TestStore_FullStorage(t *testing.T) {
	e := newTestEngine(t)
	fridge := placeAt(t, e, "Fridge", 0, 0)
	apples := []*Furniture{placeAt(t, e, "Apple", 1, 0), placeAt(t, e, "Apple", 2, 0), placeAt(t, e, "Apple", 3, 0)}
	teddy := placeAt(t, e, "Teddy", 4, 0)

	for _, a := range apples[:2] {
		if res := e.Store(a.ID, fridge.ID); res.Outcome != OutcomeStored {
			t.Fatalf("Expected apple to be stored, got %v", res.Err)
		}
	}
	for _, f := range []*Furniture{apples[2], teddy} {
		res := e.Store(f.ID, fridge.ID)
		if !errors.Is(res.Err, ErrStorageRejected) {
			t.Errorf("Expected %s to be rejected, got %v", f.Name, res.Err)
		}
	}
	if e.ap != DefaultActionPoints-2 {
		t.Errorf("Expected 2 action points spent, got %d left", e.ap)
	}
	assertInvariants(t, e)
}

func TestTakeOut(t *testing.T) {
	e := newTestEngine(t)
	fridge := placeAt(t, e, "Fridge", 0, 0)
	apple := placeAt(t, e, "Apple", 1, 0)
	e.Store(apple.ID, fridge.ID)

	if res := e.TakeOut(apple.ID, cell(0, 0)); !errors.Is(res.Err, ErrInvalidPlacement) {
		t.Errorf("Expected take out onto the fridge to fail, got %v", res.Err)
	}
	if res := e.TakeOut(apple.ID, cell(5, 5)); res.Outcome != OutcomeTakenOut {
		t.Errorf("Expected take out to succeed, got %v", res.Err)
	}
	assertInvariants(t, e)
}

func TestMerge_Success(t *testing.T) {
	e := newTestEngine(t)
	source := placeAt(t, e, "Chair", 0, 0)
	target := placeAt(t, e, "Chair", 2, 2)

	res := e.Merge(source.ID, target.ID)
	if res.Outcome != OutcomeMerged {
		t.Fatalf("Expected merge, got %v (%v)", res.Outcome, res.Err)
	}
	if target.MergeLevel != 1 || target.HappyValue != 4 {
		t.Errorf("Expected level 1 with happy 4, got level %d happy %d", target.MergeLevel, target.HappyValue)
	}
	if source.State != StateDestroyed {
		t.Errorf("Expected source destroyed, got %s", source.State)
	}
	if res := e.Move(source.ID, cell(4, 4)); !errors.Is(res.Err, ErrFurnitureNotFound) {
		t.Errorf("Expected the destroyed source to be gone, got %v", res.Err)
	}
	assertInvariants(t, e)
}

func TestMerge_LevelMismatchFallsThrough(t *testing.T) {
	e := newTestEngine(t)
	source := placeAt(t, e, "Chair", 0, 0)
	target := placeAt(t, e, "Chair", 2, 2)
	target.MergeLevel = 1

	res := e.Merge(source.ID, target.ID)
	if res.OK() {
		t.Fatal("Expected the merge to fail")
	}
	if !res.Is(ErrMergeIncompatible) {
		t.Errorf("Expected merge incompatibility to be reported, got %v / %v", res.Err, res.Rejected)
	}
	if !errors.Is(res.Err, ErrInvalidPlacement) {
		t.Errorf("Expected the fallback move to be rejected, got %v", res.Err)
	}
	if source.Pos != cell(0, 0) || source.State != StateFloor || target.MergeLevel != 1 {
		t.Error("Expected nothing to change")
	}
	assertInvariants(t, e)
}

func TestAttachToWall(t *testing.T) {
	e := newTestEngine(t)
	painting := placeAt(t, e, "Painting", 2, 2)

	res := e.AttachToWall(painting.ID, WallHit{Side: WallNegX, Along: 1, Elevation: 1})
	if res.Outcome != OutcomeAttached {
		t.Fatalf("Expected attach, got %v (%v)", res.Outcome, res.Err)
	}
	if painting.State != StateWall || len(e.wallItems) != 1 {
		t.Errorf("Expected painting on the wall, got %s", painting.State)
	}
	assertInvariants(t, e)

	state := e.GetState()
	if len(state.Furniture) != 1 || state.Furniture[0].Wall == nil {
		t.Error("Expected the snapshot to include the wall piece")
	}

	res = e.DetachFromWall(painting.ID, cell(3, 3))
	if res.Outcome != OutcomeDetached || painting.State != StateFloor || len(e.wallItems) != 0 {
		t.Errorf("Expected detach, got %v (%v)", res.Outcome, res.Err)
	}
	assertInvariants(t, e)
}

func TestAttachToWall_BlockedReverts(t *testing.T) {
	e := newTestEngine(t)
	placeAt(t, e, "Lamp", 0, 1)
	painting := placeAt(t, e, "Painting", 3, 3)
	chair := placeAt(t, e, "Chair", 4, 4)

	res := e.AttachToWall(painting.ID, WallHit{Side: WallNegX, Along: 1, Elevation: 1})
	if !errors.Is(res.Err, ErrWallPlacementRejected) {
		t.Fatalf("Expected the tall lamp to block the mount, got %v", res.Err)
	}
	if painting.State != StateFloor || painting.Wall != nil {
		t.Errorf("Expected the attach to be reverted, got %s", painting.State)
	}
	if e.grid.IndexOf(painting) != 1 {
		t.Errorf("Expected painting back at its old place in the list, got %d", e.grid.IndexOf(painting))
	}
	if e.ap != DefaultActionPoints {
		t.Errorf("Expected no action point spent, got %d", e.ap)
	}

	if res := e.AttachToWall(chair.ID, WallHit{Side: WallNegY, Along: 2, Elevation: 1}); !errors.Is(res.Err, ErrWallPlacementRejected) {
		t.Errorf("Expected a chair not to hang, got %v", res.Err)
	}
	assertInvariants(t, e)
}

func TestMove_StoresWallPiece(t *testing.T) {
	e := newTestEngine(t)
	placeAt(t, e, "Fridge", 5, 5)
	painting := placeAt(t, e, "Painting", 2, 2)
	e.AttachToWall(painting.ID, WallHit{Side: WallNegY, Along: 1, Elevation: 1})

	// the fridge only takes food
	if res := e.Move(painting.ID, cell(5, 5)); res.OK() {
		t.Errorf("Expected painting to be rejected by the fridge, got %v", res.Outcome)
	}
	if res := e.Move(painting.ID, cell(4, 4)); res.Outcome != OutcomeDetached {
		t.Errorf("Expected moving a wall piece to detach it, got %v (%v)", res.Outcome, res.Err)
	}
	assertInvariants(t, e)
}

func TestGetActionHistory(t *testing.T) {
	e := newTestEngine(t)
	chair := placeAt(t, e, "Chair", 0, 0)
	e.Move(chair.ID, cell(1, 1))
	e.Move(chair.ID, cell(9, 9))

	history := e.GetActionHistory()
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].Outcome != OutcomeMoved || history[0].Error != "" {
		t.Errorf("Expected a clean first entry, got %+v", history[0])
	}
	if history[1].Outcome != OutcomeFailed || history[1].Error == "" {
		t.Errorf("Expected a failed second entry, got %+v", history[1])
	}
	if history[1].Seq != 2 {
		t.Errorf("Expected sequence 2, got %d", history[1].Seq)
	}
}

func TestGetState_IsDetached(t *testing.T) {
	e := newTestEngine(t)
	fridge := placeAt(t, e, "Fridge", 0, 0)
	apple := placeAt(t, e, "Apple", 1, 0)
	e.Store(apple.ID, fridge.ID)

	state := e.GetState()
	if len(state.Furniture) != 1 || len(state.Furniture[0].Stored) != 1 {
		t.Fatalf("Expected the fridge with one stored apple, got %+v", state.Furniture)
	}
	state.Furniture[0].Stored[0].Name = "Changed"
	state.Furniture[0].Accepts[0] = CategoryToy

	if apple.Name != "Apple" || fridge.Accepts[0] != CategoryFood {
		t.Error("Expected the snapshot to be a deep copy")
	}
	if len(state.Breakdown) != 1 || state.Breakdown[0].Amount != 1+1+DefaultSynergyBonus {
		t.Errorf("Expected projected breakdown with synergy, got %+v", state.Breakdown)
	}
}
