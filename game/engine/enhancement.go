package engine

import "fmt"

// EnhancementKind is the closed set of enhancement variants
type EnhancementKind string

const (
	EnhanceHappy         EnhancementKind = "happy_boost"
	EnhanceActionPoints  EnhancementKind = "action_boost"
	EnhanceGridExpansion EnhancementKind = "grid_expansion"
)

// Enhancement is a tagged variant. GameEngine.ApplyEnhancement overwrites
// Amount with the rule set's enhancement_boost; it is ignored for grid
// expansion.
type Enhancement struct {
	Kind   EnhancementKind `json:"kind"`
	Amount int             `json:"amount,omitempty"`
}

// ExpansionHost is the part of the engine an enhancement may reach into
type ExpansionHost interface {
	BeginExpansion() error
}

// Describe returns a short player-facing description
func (e Enhancement) Describe() string {
	switch e.Kind {
	case EnhanceHappy:
		return fmt.Sprintf("+%d Happy every turn", e.amount())
	case EnhanceActionPoints:
		return fmt.Sprintf("+%d action point every turn", e.amount())
	case EnhanceGridExpansion:
		return "Unlock one grid cell at the room's edge"
	}
	return string(e.Kind)
}

// NeedsTarget reports whether the variant applies to a furniture piece
func (e Enhancement) NeedsTarget() bool {
	return e.Kind == EnhanceHappy || e.Kind == EnhanceActionPoints
}

func (e Enhancement) amount() int {
	if e.Amount <= 0 {
		return 1
	}
	return e.Amount
}

// Apply dispatches e on target and host. Furniture variants mutate target;
// grid expansion asks host to enter expansion selection.
func Apply(e Enhancement, target *Furniture, host ExpansionHost) error {
	switch e.Kind {
	case EnhanceHappy, EnhanceActionPoints:
		if target == nil || !target.IsLive() {
			return fmt.Errorf("%w: %s needs a live furniture target", ErrFurnitureNotFound, e.Kind)
		}
		if e.Kind == EnhanceHappy {
			target.HappyValue += e.amount()
		} else {
			target.BonusAP += e.amount()
		}
		return nil
	case EnhanceGridExpansion:
		return host.BeginExpansion()
	}
	return fmt.Errorf("unknown enhancement %q", e.Kind)
}
