package engine

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"
)

// Grid is the authoritative set of unlocked half-cells plus the ordered list
// of floor-placed furniture. It performs no locking; its owner serializes access.
type Grid struct {
	valid  mapset.Set[HalfCell]
	active []*Furniture
}

// NewGrid creates a grid with a width x height block of unlocked grid cells
func NewGrid(width, height int) *Grid {
	g := &Grid{valid: mapset.New[HalfCell]()}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.UnlockCell(GridCell{X: x, Y: y})
		}
	}
	return g
}

// IsValidRegion reports whether every half-cell is unlocked
func (g *Grid) IsValidRegion(cells []HalfCell) bool {
	for _, c := range cells {
		if !g.valid.Has(c) {
			return false
		}
	}
	return true
}

// IsFree reports whether no active furniture other than excluding covers any of cells
func (g *Grid) IsFree(cells []HalfCell, excluding *Furniture) bool {
	query := mapset.New[HalfCell]()
	for _, c := range cells {
		query.Put(c)
	}
	for _, f := range g.active {
		if f == excluding {
			continue
		}
		for _, c := range f.OccupiedHalfCells() {
			if query.Has(c) {
				return false
			}
		}
	}
	return true
}

// AddActive appends f to the active list
func (g *Grid) AddActive(f *Furniture) {
	g.active = append(g.active, f)
}

// RemoveActive drops f from the active list, reporting whether it was present
func (g *Grid) RemoveActive(f *Furniture) bool {
	for i, a := range g.active {
		if a == f {
			g.active = append(g.active[:i], g.active[i+1:]...)
			return true
		}
	}
	return false
}

// IndexOf returns f's position in the active list, or -1
func (g *Grid) IndexOf(f *Furniture) int {
	for i, a := range g.active {
		if a == f {
			return i
		}
	}
	return -1
}

// InsertActive puts f back at index i, clamped to the list bounds
func (g *Grid) InsertActive(i int, f *Furniture) {
	if i < 0 || i > len(g.active) {
		i = len(g.active)
	}
	g.active = append(g.active, nil)
	copy(g.active[i+1:], g.active[i:])
	g.active[i] = f
}

// FurnitureAt returns the earliest-added active furniture covering cell
func (g *Grid) FurnitureAt(cell HalfCell, excluding *Furniture) *Furniture {
	for _, f := range g.active {
		if f == excluding {
			continue
		}
		for _, c := range f.OccupiedHalfCells() {
			if c == cell {
				return f
			}
		}
	}
	return nil
}

// Overlapping returns every active furniture sharing a half-cell with cells, in insertion order
func (g *Grid) Overlapping(cells []HalfCell, excluding *Furniture) []*Furniture {
	query := mapset.New[HalfCell]()
	for _, c := range cells {
		query.Put(c)
	}
	var out []*Furniture
	for _, f := range g.active {
		if f == excluding {
			continue
		}
		for _, c := range f.OccupiedHalfCells() {
			if query.Has(c) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Active returns a copy of the active list
func (g *Grid) Active() []*Furniture {
	return append([]*Furniture(nil), g.active...)
}

// IsCellValid reports whether all four half-cells of c are unlocked
func (g *Grid) IsCellValid(c GridCell) bool {
	for _, h := range c.HalfCells() {
		if !g.valid.Has(h) {
			return false
		}
	}
	return true
}

// UnlockCell adds the half-cells of c and reports whether the set changed
func (g *Grid) UnlockCell(c GridCell) bool {
	changed := false
	for _, h := range c.HalfCells() {
		if !g.valid.Has(h) {
			g.valid.Put(h)
			changed = true
		}
	}
	return changed
}

// ValidHalfCellCount returns the size of the valid set
func (g *Grid) ValidHalfCellCount() int {
	return g.valid.Size()
}

// ValidHalfCells returns the valid set sorted row-major
func (g *Grid) ValidHalfCells() []HalfCell {
	out := make([]HalfCell, 0, g.valid.Size())
	g.valid.Each(func(h HalfCell) {
		out = append(out, h)
	})
	sortHalfCells(out)
	return out
}

// ValidCells returns every fully unlocked grid cell sorted row-major
func (g *Grid) ValidCells() []GridCell {
	seen := make(map[GridCell]bool)
	var out []GridCell
	g.valid.Each(func(h HalfCell) {
		c := GridCell{X: floorDiv(h.X, 2), Y: floorDiv(h.Y, 2)}
		if seen[c] {
			return
		}
		seen[c] = true
		if g.IsCellValid(c) {
			out = append(out, c)
		}
	})
	sortGridCells(out)
	return out
}

// Bounds returns the inclusive min and max fully valid grid cells
func (g *Grid) Bounds() (GridCell, GridCell, bool) {
	cells := g.ValidCells()
	if len(cells) == 0 {
		return GridCell{}, GridCell{}, false
	}
	lo, hi := cells[0], cells[0]
	for _, c := range cells[1:] {
		lo.X, lo.Y = min(lo.X, c.X), min(lo.Y, c.Y)
		hi.X, hi.Y = max(hi.X, c.X), max(hi.Y, c.Y)
	}
	return lo, hi, true
}

// CheckInvariants verifies every active footprint is inside the valid region
// and no two active footprints intersect.
func (g *Grid) CheckInvariants() error {
	owner := make(map[HalfCell]*Furniture)
	for _, f := range g.active {
		if f.State != StateFloor {
			return fmt.Errorf("furniture %s is active but in state %s", f.ID, f.State)
		}
		cells := f.OccupiedHalfCells()
		if !g.IsValidRegion(cells) {
			return fmt.Errorf("furniture %s extends outside the valid region", f.ID)
		}
		for _, c := range cells {
			if other, taken := owner[c]; taken {
				return fmt.Errorf("furniture %s overlaps %s at (%d,%d)", f.ID, other.ID, c.X, c.Y)
			}
			owner[c] = f
		}
	}
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
