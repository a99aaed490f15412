package engine

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// WallSide names a side of a grid cell as seen from the default camera,
// which looks into the room from the +x/+y corner.
type WallSide string

const (
	WallNegX WallSide = "up_left"    // far, realized
	WallNegY WallSide = "up_right"   // far, realized
	WallPosX WallSide = "down_right" // near, omitted
	WallPosY WallSide = "down_left"  // near, omitted
)

// IsFar reports whether walls on this side are rendered
func (s WallSide) IsFar() bool {
	return s == WallNegX || s == WallNegY
}

// WallSpan is one rendered wall strip. Vertical sides (up_left) run along y
// on the line x = Line; horizontal sides (up_right) run along x on y = Line.
// From and To are grid-vertex coordinates; Length is the rendered length after
// the minimum span floor is applied.
type WallSpan struct {
	Side   WallSide `json:"side"`
	Line   int      `json:"line"`
	From   int      `json:"from"`
	To     int      `json:"to"`
	Length float64  `json:"length"`
}

type vertex struct{ X, Y int }

// segment is a unit boundary edge between a valid cell and an invalid neighbor
type segment struct {
	Side WallSide
	Line int
	At   int
}

func (s segment) vertices() (vertex, vertex) {
	if s.Side == WallNegX || s.Side == WallPosX {
		return vertex{s.Line, s.At}, vertex{s.Line, s.At + 1}
	}
	return vertex{s.At, s.Line}, vertex{s.At + 1, s.Line}
}

// ComputeExpansionCandidates returns every grid cell outside the valid region
// that is 4-adjacent to a fully valid cell, sorted row-major.
func ComputeExpansionCandidates(g *Grid) []GridCell {
	seen := mapset.New[GridCell]()
	var out []GridCell
	for _, c := range g.ValidCells() {
		for _, n := range neighbors(c) {
			if seen.Has(n) || g.IsCellValid(n) {
				continue
			}
			seen.Put(n)
			out = append(out, n)
		}
	}
	sortGridCells(out)
	return out
}

// IsExpansionCandidate reports whether cell may be unlocked next
func IsExpansionCandidate(g *Grid, cell GridCell) bool {
	if g.IsCellValid(cell) {
		return false
	}
	for _, n := range neighbors(cell) {
		if g.IsCellValid(n) {
			return true
		}
	}
	return false
}

// CommitExpansion unlocks cell. It is idempotent and reports whether the
// valid region changed.
func CommitExpansion(g *Grid, cell GridCell) bool {
	return g.UnlockCell(cell)
}

// DeriveWalls computes the rendered wall strips bordering the valid region.
// Boundary segments on all four sides are grouped into components by shared
// vertices; the component with the most far-side segments wins (ties: most
// segments overall, then the smallest vertex). Its far-side segments are
// merged into collinear strips.
func DeriveWalls(g *Grid, minSpan float64) []WallSpan {
	segs := boundarySegments(g)
	if len(segs) == 0 {
		return nil
	}
	best := pickComponent(segs, components(segs))

	type lineKey struct {
		Side WallSide
		Line int
	}
	byLine := make(map[lineKey][]int)
	var keys []lineKey
	for _, i := range best {
		s := segs[i]
		if !s.Side.IsFar() {
			continue
		}
		k := lineKey{s.Side, s.Line}
		if _, ok := byLine[k]; !ok {
			keys = append(keys, k)
		}
		byLine[k] = append(byLine[k], s.At)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Side != keys[j].Side {
			return keys[i].Side < keys[j].Side
		}
		return keys[i].Line < keys[j].Line
	})

	var spans []WallSpan
	for _, k := range keys {
		ats := byLine[k]
		sort.Ints(ats)
		from, to := ats[0], ats[0]+1
		for _, a := range ats[1:] {
			if a == to {
				to++
				continue
			}
			spans = append(spans, newSpan(k.Side, k.Line, from, to, minSpan))
			from, to = a, a+1
		}
		spans = append(spans, newSpan(k.Side, k.Line, from, to, minSpan))
	}
	return spans
}

func newSpan(side WallSide, line, from, to int, minSpan float64) WallSpan {
	length := float64(to - from)
	if length < minSpan {
		length = minSpan
	}
	return WallSpan{Side: side, Line: line, From: from, To: to, Length: length}
}

// boundarySegments lists every valid-cell side whose neighbor is not valid
func boundarySegments(g *Grid) []segment {
	var out []segment
	for _, c := range g.ValidCells() {
		if !g.IsCellValid(GridCell{c.X - 1, c.Y}) {
			out = append(out, segment{WallNegX, c.X, c.Y})
		}
		if !g.IsCellValid(GridCell{c.X, c.Y - 1}) {
			out = append(out, segment{WallNegY, c.Y, c.X})
		}
		if !g.IsCellValid(GridCell{c.X + 1, c.Y}) {
			out = append(out, segment{WallPosX, c.X + 1, c.Y})
		}
		if !g.IsCellValid(GridCell{c.X, c.Y + 1}) {
			out = append(out, segment{WallPosY, c.Y + 1, c.X})
		}
	}
	return out
}

// components groups segment indices connected through shared vertices
func components(segs []segment) [][]int {
	byVertex := make(map[vertex][]int)
	for i, s := range segs {
		a, b := s.vertices()
		byVertex[a] = append(byVertex[a], i)
		byVertex[b] = append(byVertex[b], i)
	}

	visited := mapset.New[int]()
	var out [][]int
	for i := range segs {
		if visited.Has(i) {
			continue
		}
		var comp []int
		queue := []int{i}
		visited.Put(i)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			a, b := segs[cur].vertices()
			for _, v := range [2]vertex{a, b} {
				for _, n := range byVertex[v] {
					if !visited.Has(n) {
						visited.Put(n)
						queue = append(queue, n)
					}
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

func pickComponent(segs []segment, comps [][]int) []int {
	bestIdx := -1
	var bestFar, bestTotal int
	var bestMin vertex
	for ci, comp := range comps {
		far := 0
		minV := vertex{1 << 30, 1 << 30}
		for _, i := range comp {
			if segs[i].Side.IsFar() {
				far++
			}
			a, _ := segs[i].vertices()
			if a.Y < minV.Y || (a.Y == minV.Y && a.X < minV.X) {
				minV = a
			}
		}
		better := bestIdx < 0 ||
			far > bestFar ||
			(far == bestFar && len(comp) > bestTotal) ||
			(far == bestFar && len(comp) == bestTotal && (minV.Y < bestMin.Y || (minV.Y == bestMin.Y && minV.X < bestMin.X)))
		if better {
			bestIdx, bestFar, bestTotal, bestMin = ci, far, len(comp), minV
		}
	}
	return comps[bestIdx]
}

func neighbors(c GridCell) [4]GridCell {
	return [4]GridCell{{c.X, c.Y - 1}, {c.X - 1, c.Y}, {c.X + 1, c.Y}, {c.X, c.Y + 1}}
}
