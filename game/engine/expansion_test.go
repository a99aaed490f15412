package engine

import (
	"reflect"
	"testing"
)

func spansOn(walls []WallSpan, side WallSide, line int) []WallSpan {
	var out []WallSpan
	for _, w := range walls {
		if w.Side == side && w.Line == line {
			out = append(out, w)
		}
	}
	return out
}

func TestComputeExpansionCandidates(t *testing.T) {
	g := NewGrid(2, 2)

	got := ComputeExpansionCandidates(g)
	want := []GridCell{{0, -1}, {1, -1}, {-1, 0}, {2, 0}, {-1, 1}, {2, 1}, {0, 2}, {1, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected candidates %v, got %v", want, got)
	}

	if IsExpansionCandidate(g, GridCell{0, 0}) {
		t.Error("Expected a valid cell not to be a candidate")
	}
	if IsExpansionCandidate(g, GridCell{2, 2}) {
		t.Error("Expected a diagonal cell not to be a candidate")
	}
	if !IsExpansionCandidate(g, GridCell{2, 1}) {
		t.Error("Expected an edge-adjacent cell to be a candidate")
	}
}

func TestCommitExpansion_Idempotent(t *testing.T) {
	once := NewGrid(3, 3)
	twice := NewGrid(3, 3)
	cell := GridCell{3, 1}

	if !CommitExpansion(once, cell) {
		t.Error("Expected first expansion to change the room")
	}
	CommitExpansion(twice, cell)
	if CommitExpansion(twice, cell) {
		t.Error("Expected second expansion to be a no-op")
	}

	if !reflect.DeepEqual(once.ValidHalfCells(), twice.ValidHalfCells()) {
		t.Error("Expected expanding twice to equal expanding once")
	}
	if once.ValidHalfCellCount() != 36+4 {
		t.Errorf("Expected 40 valid half-cells, got %d", once.ValidHalfCellCount())
	}
}

func TestDeriveWalls_Rectangle(t *testing.T) {
	g := NewGrid(4, 3)

	got := DeriveWalls(g, DefaultMinWallSpan)
	want := []WallSpan{
		{Side: WallNegX, Line: 0, From: 0, To: 3, Length: 3},
		{Side: WallNegY, Line: 0, From: 0, To: 4, Length: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected walls %v, got %v", want, got)
	}
}

func TestDeriveWalls_ExpansionRemovesBorderingSegment(t *testing.T) {
	g := NewGrid(3, 3)
	before := DeriveWalls(g, DefaultMinWallSpan)
	if _, ok := spanCovering(before, WallNegY, nil, 1, 2); !ok {
		t.Fatal("Expected the back wall to cover (1,0) before expansion")
	}

	sizeBefore := g.ValidHalfCellCount()
	cell := GridCell{1, -1}
	if !IsExpansionCandidate(g, cell) {
		t.Fatal("Expected (1,-1) to be a candidate")
	}
	CommitExpansion(g, cell)
	if g.ValidHalfCellCount() != sizeBefore+4 {
		t.Errorf("Expected exactly 4 new half-cells, got %d", g.ValidHalfCellCount()-sizeBefore)
	}

	after := DeriveWalls(g, DefaultMinWallSpan)
	want := []WallSpan{
		{Side: WallNegX, Line: 0, From: 0, To: 3, Length: 3},
		{Side: WallNegX, Line: 1, From: -1, To: 0, Length: 1},
		{Side: WallNegY, Line: -1, From: 1, To: 2, Length: 1},
		{Side: WallNegY, Line: 0, From: 0, To: 1, Length: 1},
		{Side: WallNegY, Line: 0, From: 2, To: 3, Length: 1},
	}
	if !reflect.DeepEqual(after, want) {
		t.Errorf("Expected walls %v, got %v", want, after)
	}
	line := 0
	if _, ok := spanCovering(after, WallNegY, &line, 1, 2); ok {
		t.Error("Expected the segment bordering the new cell to be gone")
	}
}

func TestDeriveWalls_PicksRichestComponent(t *testing.T) {
	g := NewGrid(2, 2)
	g.UnlockCell(GridCell{5, 5})

	got := DeriveWalls(g, DefaultMinWallSpan)
	if len(spansOn(got, WallNegX, 5)) != 0 || len(spansOn(got, WallNegY, 5)) != 0 {
		t.Errorf("Expected the isolated cell to get no walls, got %v", got)
	}
	if len(spansOn(got, WallNegX, 0)) != 1 || len(spansOn(got, WallNegY, 0)) != 1 {
		t.Errorf("Expected the main room to keep both walls, got %v", got)
	}
}

func TestDeriveWalls_TieBreaksOnSmallestVertex(t *testing.T) {
	g := NewGrid(0, 0)
	g.UnlockCell(GridCell{3, 0})
	g.UnlockCell(GridCell{0, 0})

	got := DeriveWalls(g, DefaultMinWallSpan)
	want := []WallSpan{
		{Side: WallNegX, Line: 0, From: 0, To: 1, Length: 1},
		{Side: WallNegY, Line: 0, From: 0, To: 1, Length: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected walls %v, got %v", want, got)
	}
}

func TestDeriveWalls_MinimumSpan(t *testing.T) {
	g := NewGrid(1, 1)

	for _, span := range DeriveWalls(g, 2) {
		if span.Length != 2 {
			t.Errorf("Expected length raised to 2, got %.1f", span.Length)
		}
		if span.To-span.From != 1 {
			t.Errorf("Expected the vertex range to stay 1, got %d", span.To-span.From)
		}
	}
}

func TestDeriveWalls_EmptyGrid(t *testing.T) {
	if walls := DeriveWalls(NewGrid(0, 0), DefaultMinWallSpan); walls != nil {
		t.Errorf("Expected no walls, got %v", walls)
	}
}
