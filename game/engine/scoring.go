package engine

// ComputeHappyBreakdown returns each live floor or wall piece's contribution
// for one turn. A storage adds every contained item's happy value plus
// synergyBonus per contained item whose category matches its non-empty filter.
func ComputeHappyBreakdown(pieces []*Furniture, synergyBonus int) []HappyEntry {
	out := make([]HappyEntry, 0, len(pieces))
	for _, f := range pieces {
		if f.State != StateFloor && f.State != StateWall {
			continue
		}
		e := HappyEntry{FurnitureID: f.ID, Name: f.Name, Pos: f.Pos, Base: f.HappyValue}
		if f.Kind == KindStorage {
			for _, item := range f.Stored {
				e.Stored += item.HappyValue
				if item.Category != CategoryNone && len(f.Accepts) > 0 && f.AcceptsCategory(item.Category) {
					e.Synergy += synergyBonus
				}
			}
		}
		e.Amount = e.Base + e.Stored + e.Synergy
		out = append(out, e)
	}
	return out
}

// HappyTotal sums a breakdown
func HappyTotal(entries []HappyEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
