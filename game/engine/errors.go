package engine

import "errors"

var (
	ErrInvalidPlacement      = errors.New("invalid placement")
	ErrStorageRejected       = errors.New("storage rejected")
	ErrMergeIncompatible     = errors.New("merge incompatible")
	ErrWallPlacementRejected = errors.New("wall placement rejected")
	ErrGameOver              = errors.New("game over")

	ErrNoActionPoints    = errors.New("no action points left")
	ErrFurnitureNotFound = errors.New("furniture not found")
	ErrNotExpandable     = errors.New("cell is not an expansion candidate")
	ErrWrongPhase        = errors.New("not allowed in the current phase")
	ErrFixedFurniture    = errors.New("furniture is fixed in place")
	ErrInvalidOffer      = errors.New("no such offer")
	ErrNoEnhancement     = errors.New("no enhancement available")
)

// Outcome names what a request did
type Outcome string

const (
	OutcomeMoved     Outcome = "moved"
	OutcomeStored    Outcome = "stored"
	OutcomeTakenOut  Outcome = "taken_out"
	OutcomeMerged    Outcome = "merged"
	OutcomeRotated   Outcome = "rotated"
	OutcomeAttached  Outcome = "attached"
	OutcomeDetached  Outcome = "detached"
	OutcomeExpanded  Outcome = "expanded"
	OutcomePlaced    Outcome = "placed"
	OutcomeSelected  Outcome = "selected"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeEnhanced  Outcome = "enhanced"
	OutcomeTurnEnded Outcome = "turn_ended"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
)

// Result is the explicit success/failure indicator every engine request returns.
// Err is nil on success. Rejected holds recovered rejections that fell through
// to another attempt, oldest first.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	Err      error   `json:"-"`
	Rejected []error `json:"-"`
}

// OK reports whether the request committed
func (r Result) OK() bool {
	return r.Err == nil
}

// Is reports whether target matches the final error or any recovered rejection
func (r Result) Is(target error) bool {
	if errors.Is(r.Err, target) {
		return true
	}
	for _, e := range r.Rejected {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

// Code returns a machine-friendly code for the final error
func (r Result) Code() string {
	return ErrorCode(r.Err)
}

// ErrorCode maps an engine error to a snake_case code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPlacement):
		return "invalid_placement"
	case errors.Is(err, ErrStorageRejected):
		return "storage_rejected"
	case errors.Is(err, ErrMergeIncompatible):
		return "merge_incompatible"
	case errors.Is(err, ErrWallPlacementRejected):
		return "wall_placement_rejected"
	case errors.Is(err, ErrGameOver):
		return "game_over"
	case errors.Is(err, ErrNoActionPoints):
		return "no_action_points"
	case errors.Is(err, ErrFurnitureNotFound):
		return "furniture_not_found"
	case errors.Is(err, ErrNotExpandable):
		return "not_expandable"
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, ErrFixedFurniture):
		return "fixed_furniture"
	case errors.Is(err, ErrInvalidOffer):
		return "invalid_offer"
	case errors.Is(err, ErrNoEnhancement):
		return "no_enhancement"
	default:
		return "error"
	}
}

func succeeded(o Outcome) Result {
	return Result{Outcome: o}
}

func failed(err error, rejected ...error) Result {
	return Result{Outcome: OutcomeFailed, Err: err, Rejected: rejected}
}
