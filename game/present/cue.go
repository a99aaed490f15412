// Package present turns engine results into timed presentation cues.
//
// Cues are built from snapshots taken when the engine commits or rejects a
// request; the engine never waits for them. Front-ends either play cues
// themselves or use the baked keyframes.
package present

import (
	"github.com/wysosilly/almost-happy-home/game/engine"
)

// CueKind is the closed set of presentation effects
type CueKind string

const (
	CueShake CueKind = "shake"
	CueFall  CueKind = "fall"
	CuePopup CueKind = "popup"
)

// Cue describes one effect for a front-end to play
type Cue struct {
	Kind        CueKind         `json:"kind"`
	FurnitureID string          `json:"furniture_id,omitempty"`
	From        engine.HalfCell `json:"from"`
	To          engine.HalfCell `json:"to"`
	Amount      int             `json:"amount,omitempty"`
	Duration    float32         `json:"duration"`
	Frames      []Frame         `json:"frames,omitempty"`
}

// CuesForAction returns the cues for a single furniture request. A rejected
// request shakes the piece where it stood; a merge pops up the new value.
func CuesForAction(before, after *engine.GameState, furnitureID string, res engine.Result) []Cue {
	if !res.OK() {
		if f, ok := find(before, furnitureID); ok {
			return []Cue{{Kind: CueShake, FurnitureID: furnitureID, From: f.Pos, To: f.Pos, Duration: ShakeDuration}}
		}
		return nil
	}
	if res.Outcome == engine.OutcomeMerged {
		for _, f := range after.Furniture {
			if f.MergeLevel > 0 && !present(before, f.ID, f.MergeLevel) {
				return []Cue{{Kind: CuePopup, FurnitureID: f.ID, From: f.Pos, To: f.Pos, Amount: f.HappyValue, Duration: PopupDuration}}
			}
		}
	}
	return nil
}

// CuesForTurn returns score popups positioned on the pre-delivery snapshot
// and falls for every delivered piece positioned on the post-delivery one
func CuesForTurn(report engine.TurnReport, after *engine.GameState) []Cue {
	var cues []Cue
	for _, e := range report.Breakdown {
		if e.Amount == 0 {
			continue
		}
		cues = append(cues, Cue{
			Kind:        CuePopup,
			FurnitureID: e.FurnitureID,
			From:        e.Pos,
			To:          e.Pos,
			Amount:      e.Amount,
			Duration:    PopupDuration,
		})
	}
	for _, id := range report.Delivered {
		if f, ok := find(after, id); ok {
			cues = append(cues, Cue{Kind: CueFall, FurnitureID: id, From: f.Pos, To: f.Pos, Duration: FallDuration})
		}
	}
	return cues
}

func find(state *engine.GameState, id string) (engine.FurnitureView, bool) {
	if state == nil {
		return engine.FurnitureView{}, false
	}
	for _, f := range state.Furniture {
		if f.ID == id {
			return f, true
		}
		for _, s := range f.Stored {
			if s.ID == id {
				return s, true
			}
		}
	}
	return engine.FurnitureView{}, false
}

// present reports whether state already had id at merge level
func present(state *engine.GameState, id string, level int) bool {
	f, ok := find(state, id)
	return ok && f.MergeLevel == level
}
