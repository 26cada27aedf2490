package game

import "errors"

var (
	ErrNotFound            = errors.New("session not found")
	ErrInvalidState        = errors.New("invalid state for action")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidTarget       = errors.New("finger does not match the acting player")
	ErrNoActivePlayers     = errors.New("no active players")
	ErrEliminationDisabled = errors.New("elimination is disabled")
	ErrConflict            = errors.New("session was modified concurrently")

	// ErrTaskSourceUnavailable never fails a transition; it is the reason
	// carried by an unavailable task.
	ErrTaskSourceUnavailable = errors.New("task source unavailable")
)

// Kind maps an error to the short name exposed to clients.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrNoActivePlayers):
		return "no_active_players"
	case errors.Is(err, ErrEliminationDisabled):
		return "elimination_disabled"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTaskSourceUnavailable):
		return "task_source_unavailable"
	}
	return "internal"
}
