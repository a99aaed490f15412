package engine

import (
	"fmt"
	"math"
)

const (
	wallAlongStep    = 0.5
	wallElevOffset   = 0.25
	wallClearance    = 0.5
	minWallElevation = wallElevOffset
)

// WallHit is a resolved pointer hit on a wall surface. The input layer maps
// the surface normal and wall rotation to Side; Along and Elevation are the
// wall-local hit coordinates in grid units. Line pins the span when several
// walls on the same side cover the same stretch.
type WallHit struct {
	Side      WallSide `json:"side"`
	Line      *int     `json:"line,omitempty"`
	Along     float64  `json:"along"`
	Elevation float64  `json:"elevation"`
}

// ValidatePlacement reports whether f fits at pos with rotation: every
// covered half-cell is unlocked and no other active furniture overlaps.
func ValidatePlacement(g *Grid, f *Furniture, pos HalfCell, rotation int) bool {
	cells := OccupiedHalfCells(f.Footprint, rotation, pos)
	return g.IsValidRegion(cells) && g.IsFree(cells, f)
}

// StorageAt returns the first storage under f's footprint at pos that would
// take f. The second return value carries the rejection of the first storage
// found that would not, so callers can report why they fell through.
func StorageAt(g *Grid, f *Furniture, pos HalfCell) (*Furniture, error) {
	var rejection error
	seen := make(map[*Furniture]bool)
	for _, c := range f.OccupiedHalfCellsAt(pos) {
		other := g.FurnitureAt(c, f)
		if other == nil || seen[other] || other.Kind != KindStorage {
			continue
		}
		seen[other] = true
		if err := CanStore(f, other); err != nil {
			if rejection == nil {
				rejection = err
			}
			continue
		}
		return other, nil
	}
	return nil, rejection
}

// CanStore checks kind, category filter and capacity without mutating
func CanStore(item, storage *Furniture) error {
	switch {
	case item == storage:
		return fmt.Errorf("%w: %s cannot hold itself", ErrStorageRejected, item.Name)
	case storage.Kind != KindStorage:
		return fmt.Errorf("%w: %s is not a storage", ErrStorageRejected, storage.Name)
	case item.container == storage:
		return fmt.Errorf("%w: %s is already in %s", ErrStorageRejected, item.Name, storage.Name)
	case item.Kind == KindStorage:
		return fmt.Errorf("%w: storage %s cannot be stored", ErrStorageRejected, item.Name)
	case item.Fixed:
		return fmt.Errorf("%w: %s", ErrFixedFurniture, item.Name)
	case storage.State != StateFloor:
		return fmt.Errorf("%w: %s is not on the floor", ErrStorageRejected, storage.Name)
	case !storage.AcceptsCategory(item.Category):
		return fmt.Errorf("%w: %s does not accept %s", ErrStorageRejected, storage.Name, item.Category)
	case storage.IsFull():
		return fmt.Errorf("%w: %s is full (%d/%d)", ErrStorageRejected, storage.Name, len(storage.Stored), storage.capacity())
	}
	return nil
}

// StoreInto moves item into storage. The item leaves the active list and
// loses any wall attachment.
func StoreInto(g *Grid, item, storage *Furniture) error {
	if err := CanStore(item, storage); err != nil {
		return err
	}
	if item.State == StateFloor {
		g.RemoveActive(item)
	}
	if item.container != nil {
		item.container.removeStored(item)
	}
	storage.Stored = append(storage.Stored, item)
	item.container = storage
	item.Wall = nil
	item.State = StateStored
	return nil
}

// TakeOut moves a stored item back onto the floor at pos
func TakeOut(g *Grid, item *Furniture, pos HalfCell) error {
	if item.State != StateStored || item.container == nil {
		return fmt.Errorf("%w: %s is not stored", ErrInvalidPlacement, item.Name)
	}
	if !ValidatePlacement(g, item, pos, item.Rotation) {
		return fmt.Errorf("%w: %s does not fit at (%d,%d)", ErrInvalidPlacement, item.Name, pos.X, pos.Y)
	}
	item.container.removeStored(item)
	item.container = nil
	item.Pos = pos
	item.State = StateFloor
	g.AddActive(item)
	return nil
}

// CanMerge checks the merge preconditions without mutating
func CanMerge(source, target *Furniture) error {
	switch {
	case source == target:
		return fmt.Errorf("%w: cannot merge %s with itself", ErrMergeIncompatible, source.Name)
	case source.State != StateFloor || target.State != StateFloor:
		return fmt.Errorf("%w: both pieces must be on the floor", ErrMergeIncompatible)
	case source.Fixed || target.Fixed:
		return fmt.Errorf("%w: fixed furniture cannot merge", ErrMergeIncompatible)
	case source.MergeKey() != target.MergeKey():
		return fmt.Errorf("%w: %s and %s differ", ErrMergeIncompatible, source.Name, target.Name)
	case source.MergeLevel != target.MergeLevel:
		return fmt.Errorf("%w: merge level %d vs %d", ErrMergeIncompatible, source.MergeLevel, target.MergeLevel)
	}
	return nil
}

// Merge consumes source into target: target gains a merge level and doubles
// its happy value, source is destroyed. Items stored in source move into
// target while it has room; the rest are destroyed with source and returned.
func Merge(g *Grid, source, target *Furniture) ([]*Furniture, error) {
	if err := CanMerge(source, target); err != nil {
		return nil, err
	}
	target.MergeLevel++
	target.HappyValue *= 2
	var lost []*Furniture
	for _, item := range append([]*Furniture(nil), source.Stored...) {
		if StoreInto(g, item, target) != nil {
			lost = append(lost, item)
		}
	}
	destroy(g, source)
	return lost, nil
}

// Rotate advances the rotation a quarter turn. It does not validate.
func Rotate(f *Furniture) {
	f.Rotation = (f.Rotation + 1) % MaxRotation
}

// AttachToWall snaps the hit to the wall grid and mounts f on the matching
// span. Along snaps to multiples of 0.5; Elevation snaps to the 0.5 grid
// offset by 0.25.
func AttachToWall(g *Grid, walls []WallSpan, f *Furniture, hit WallHit) error {
	if f.Kind != KindWall {
		return fmt.Errorf("%w: %s cannot hang on a wall", ErrWallPlacementRejected, f.Name)
	}
	mount := SnapWallHit(hit)
	extent := float64(wallExtent(f, mount.Side))
	span, ok := spanCovering(walls, mount.Side, hit.Line, mount.Along, mount.Along+extent)
	if !ok {
		return fmt.Errorf("%w: no %s wall at %.1f", ErrWallPlacementRejected, mount.Side, mount.Along)
	}
	mount.Line = span.Line

	if f.State == StateFloor {
		g.RemoveActive(f)
	}
	f.Wall = &mount
	f.State = StateWall
	return nil
}

// SnapWallHit converts a raw hit into a mount aligned with half-cell boundaries
func SnapWallHit(hit WallHit) WallMount {
	along := math.Round(hit.Along/wallAlongStep) * wallAlongStep
	elev := wallElevOffset + math.Round((hit.Elevation-wallElevOffset)/wallAlongStep)*wallAlongStep
	if elev < minWallElevation {
		elev = minWallElevation
	}
	return WallMount{Side: hit.Side, Along: along, Elevation: elev}
}

// WallSupported reports whether a mounted piece still hangs on one of walls
func WallSupported(walls []WallSpan, f *Furniture) bool {
	if f.Wall == nil {
		return false
	}
	lo, hi := wallInterval(f)
	line := f.Wall.Line
	_, ok := spanCovering(walls, f.Wall.Side, &line, lo, hi)
	return ok
}

// ValidateWallPlacement rejects a mount when a floor piece directly beneath is
// taller than the mount bottom, or another wall piece hangs in the same slot.
func ValidateWallPlacement(g *Grid, wallItems []*Furniture, f *Furniture) bool {
	if f.Wall == nil {
		return false
	}
	bottom := f.Wall.Elevation - wallClearance
	for _, other := range g.Overlapping(beneathHalfCells(f), f) {
		if other.Height > bottom {
			return false
		}
	}

	lo, hi := wallInterval(f)
	for _, other := range wallItems {
		if other == f || other.Wall == nil {
			continue
		}
		if other.Wall.Side != f.Wall.Side || other.Wall.Line != f.Wall.Line {
			continue
		}
		olo, ohi := wallInterval(other)
		if lo < ohi && olo < hi && math.Abs(other.Wall.Elevation-f.Wall.Elevation) < wallClearance {
			return false
		}
	}
	return true
}

// DetachFromWall puts a wall-mounted piece back on the floor at pos
func DetachFromWall(g *Grid, f *Furniture, pos HalfCell) error {
	if f.State != StateWall {
		return fmt.Errorf("%w: %s is not on a wall", ErrInvalidPlacement, f.Name)
	}
	if !ValidatePlacement(g, f, pos, f.Rotation) {
		return fmt.Errorf("%w: %s does not fit at (%d,%d)", ErrInvalidPlacement, f.Name, pos.X, pos.Y)
	}
	f.Wall = nil
	f.Pos = pos
	f.State = StateFloor
	g.AddActive(f)
	return nil
}

// beneathHalfCells returns the floor half-cells directly under a wall mount:
// one grid cell deep along the wall's inner side.
func beneathHalfCells(f *Furniture) []HalfCell {
	lo, hi := wallInterval(f)
	from, to := int(math.Floor(lo*2)), int(math.Ceil(hi*2))
	base := 2 * f.Wall.Line
	var cells []HalfCell
	for a := from; a < to; a++ {
		for d := 0; d < 2; d++ {
			if f.Wall.Side == WallNegX {
				cells = append(cells, HalfCell{X: base + d, Y: a})
			} else {
				cells = append(cells, HalfCell{X: a, Y: base + d})
			}
		}
	}
	return cells
}

// floorSpotBeneath returns the floor position a wall piece drops to
func floorSpotBeneath(f *Furniture) HalfCell {
	along := int(math.Floor(f.Wall.Along * 2))
	base := 2 * f.Wall.Line
	if f.Wall.Side == WallNegX {
		return HalfCell{X: base, Y: along}
	}
	return HalfCell{X: along, Y: base}
}

func wallInterval(f *Furniture) (float64, float64) {
	return f.Wall.Along, f.Wall.Along + float64(wallExtent(f, f.Wall.Side))
}

// wallExtent is the footprint length running along a wall on side
func wallExtent(f *Furniture, side WallSide) int {
	w, h := f.EffectiveSize()
	if side == WallNegX {
		return h
	}
	return w
}

func spanCovering(walls []WallSpan, side WallSide, line *int, lo, hi float64) (WallSpan, bool) {
	for _, s := range walls {
		if line != nil && s.Line != *line {
			continue
		}
		if s.Side == side && float64(s.From) <= lo && hi <= float64(s.To) {
			return s, true
		}
	}
	return WallSpan{}, false
}

func (f *Furniture) removeStored(item *Furniture) {
	for i, s := range f.Stored {
		if s == item {
			f.Stored = append(f.Stored[:i], f.Stored[i+1:]...)
			return
		}
	}
}

// destroy removes f and everything stored inside it from play
func destroy(g *Grid, f *Furniture) {
	if f.State == StateFloor {
		g.RemoveActive(f)
	}
	if f.container != nil {
		f.container.removeStored(f)
		f.container = nil
	}
	for _, s := range f.Stored {
		s.container = nil
		s.State = StateDestroyed
	}
	f.Stored = nil
	f.Wall = nil
	f.State = StateDestroyed
}
