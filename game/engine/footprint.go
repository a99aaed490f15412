package engine

import "sort"

// HalfCell addresses a half-unit occupancy cell
type HalfCell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// GridCell addresses a full grid cell
type GridCell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// HalfCells returns the four half-cells composing the grid cell
func (c GridCell) HalfCells() [4]HalfCell {
	x, y := 2*c.X, 2*c.Y
	return [4]HalfCell{{x, y}, {x + 1, y}, {x, y + 1}, {x + 1, y + 1}}
}

// Origin returns the half-cell at the cell's reference corner
func (c GridCell) Origin() HalfCell {
	return HalfCell{X: 2 * c.X, Y: 2 * c.Y}
}

// Footprint is either a Width x Height rectangle or, when Cells is non-empty,
// a polyomino given as grid-cell offsets.
type Footprint struct {
	Width  int        `json:"width,omitempty" yaml:"width,omitempty"`
	Height int        `json:"height,omitempty" yaml:"height,omitempty"`
	Cells  []GridCell `json:"cells,omitempty" yaml:"cells,omitempty"`
}

// IsPolyomino reports whether the footprint uses explicit offsets
func (fp Footprint) IsPolyomino() bool {
	return len(fp.Cells) > 0
}

// CellCount returns the number of grid cells covered
func (fp Footprint) CellCount() int {
	if fp.IsPolyomino() {
		return len(fp.Normalized().Cells)
	}
	w, h := EffectiveSize(fp, 0)
	return w * h
}

// Normalized returns a copy with duplicate offsets removed, offsets shifted so
// the minimum x and y are zero, and rectangle sizes clamped to at least 1.
func (fp Footprint) Normalized() Footprint {
	out := Footprint{Width: clampSize(fp.Width), Height: clampSize(fp.Height)}
	if !fp.IsPolyomino() {
		return out
	}
	seen := make(map[GridCell]bool, len(fp.Cells))
	cells := make([]GridCell, 0, len(fp.Cells))
	for _, c := range fp.Cells {
		if seen[c] {
			continue
		}
		seen[c] = true
		cells = append(cells, c)
	}
	out.Cells = renormalize(cells)
	out.Width, out.Height = boundingSize(out.Cells)
	return out
}

// RotatedOffsets rotates offsets by steps quarter turns using (x,y) -> (y,-x)
// and renormalizes after every step. Negative steps rotate the other way.
func RotatedOffsets(offsets []GridCell, steps int) []GridCell {
	out := append([]GridCell(nil), offsets...)
	if len(out) == 0 {
		return out
	}
	steps = ((steps % MaxRotation) + MaxRotation) % MaxRotation
	for i := 0; i < steps; i++ {
		for j, c := range out {
			out[j] = GridCell{X: c.Y, Y: -c.X}
		}
		out = renormalize(out)
	}
	return out
}

// EffectiveSize returns the width and height in grid cells after rotation
func EffectiveSize(fp Footprint, rotation int) (int, int) {
	if fp.IsPolyomino() {
		return boundingSize(RotatedOffsets(fp.Normalized().Cells, rotation))
	}
	w, h := clampSize(fp.Width), clampSize(fp.Height)
	if normRotation(rotation)%2 == 1 {
		return h, w
	}
	return w, h
}

// OccupiedHalfCells returns every half-cell covered by fp at pos.
// pos is the half-cell of the footprint's reference corner.
func OccupiedHalfCells(fp Footprint, rotation int, pos HalfCell) []HalfCell {
	var cells []GridCell
	if fp.IsPolyomino() {
		cells = RotatedOffsets(fp.Normalized().Cells, rotation)
	} else {
		w, h := EffectiveSize(fp, rotation)
		cells = make([]GridCell, 0, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cells = append(cells, GridCell{X: x, Y: y})
			}
		}
	}

	out := make([]HalfCell, 0, 4*len(cells))
	for _, c := range cells {
		bx, by := pos.X+2*c.X, pos.Y+2*c.Y
		out = append(out,
			HalfCell{bx, by}, HalfCell{bx + 1, by},
			HalfCell{bx, by + 1}, HalfCell{bx + 1, by + 1})
	}
	return out
}

func renormalize(cells []GridCell) []GridCell {
	if len(cells) == 0 {
		return cells
	}
	minX, minY := cells[0].X, cells[0].Y
	for _, c := range cells[1:] {
		if c.X < minX {
			minX = c.X
		}
		if c.Y < minY {
			minY = c.Y
		}
	}
	for i := range cells {
		cells[i] = GridCell{X: cells[i].X - minX, Y: cells[i].Y - minY}
	}
	return cells
}

func boundingSize(cells []GridCell) (int, int) {
	if len(cells) == 0 {
		return 1, 1
	}
	maxX, maxY := 0, 0
	for _, c := range cells {
		if c.X > maxX {
			maxX = c.X
		}
		if c.Y > maxY {
			maxY = c.Y
		}
	}
	return maxX + 1, maxY + 1
}

func clampSize(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func normRotation(r int) int {
	return ((r % MaxRotation) + MaxRotation) % MaxRotation
}

func sortHalfCells(cells []HalfCell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
}

func sortGridCells(cells []GridCell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
}
