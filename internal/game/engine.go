package game

import (
	"fmt"
	"time"
)

// NewSession validates settings and returns a session in the waiting state.
func NewSession(id string, st Settings, now time.Time) (*Session, error) {
	if st.NumPlayers < 1 {
		return nil, fmt.Errorf("%w: numPlayers must be at least 1", ErrInvalidInput)
	}
	if !st.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, st.Mode)
	}
	if st.TaskDifficulty == "" {
		st.TaskDifficulty = DifficultyAny
	}
	if !st.TaskDifficulty.Valid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, st.TaskDifficulty)
	}
	if st.Mode == ModeSimple {
		st.EliminationEnabled = false
		st.UseGeneratedTasks = false
	}
	if st.TaskTimeLimit != nil {
		if *st.TaskTimeLimit <= 0 {
			return nil, fmt.Errorf("%w: taskTimeLimit must be positive", ErrInvalidInput)
		}
		if !st.EliminationEnabled {
			return nil, fmt.Errorf("%w: taskTimeLimit requires elimination", ErrInvalidInput)
		}
	}
	return &Session{
		ID:        id,
		Settings:  st,
		Status:    StatusWaiting,
		Players:   []Player{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Start registers the fingers on the surface and moves the session to selecting.
// The first call fixes the player list; later rounds must name exactly the
// players that are still active.
func (s *Session) Start(fingers []int) error {
	if s.Status != StatusWaiting {
		return fmt.Errorf("%w: cannot start selection while %s", ErrInvalidState, s.Status)
	}
	if len(fingers) == 0 {
		return fmt.Errorf("%w: fingers must not be empty", ErrInvalidInput)
	}
	seen := make(map[int]bool, len(fingers))
	for _, f := range fingers {
		if seen[f] {
			return fmt.Errorf("%w: duplicate finger %d", ErrInvalidInput, f)
		}
		seen[f] = true
	}

	if len(s.Players) > 0 {
		for _, f := range fingers {
			p := s.player(f)
			if p == nil || p.Status != PlayerActive {
				return fmt.Errorf("%w: finger %d is not an active player", ErrInvalidInput, f)
			}
		}
		if n := len(s.activePlayers()); len(fingers) != n {
			return fmt.Errorf("%w: all %d active players must place a finger, got %d", ErrInvalidInput, n, len(fingers))
		}
		s.Status = StatusSelecting
		return nil
	}

	s.Players = make([]Player, 0, len(fingers))
	for _, f := range fingers {
		s.Players = append(s.Players, Player{FingerID: f, Status: PlayerActive})
	}
	s.ActivePlayerCount = len(s.Players)
	s.Status = StatusSelecting
	return nil
}

// Select picks the acting player. chosen is honoured when it names an active
// player; otherwise pick(n) chooses an index among the active players.
func (s *Session) Select(chosen *int, pick func(n int) int) (int, error) {
	if s.Status != StatusSelecting {
		return 0, fmt.Errorf("%w: cannot select while %s", ErrInvalidState, s.Status)
	}
	active := s.activePlayers()
	if len(active) == 0 {
		return 0, ErrNoActivePlayers
	}

	var selected *Player
	if chosen != nil {
		if p := s.player(*chosen); p != nil && p.Status == PlayerActive {
			selected = p
		}
	}
	if selected == nil {
		selected = active[pick(len(active))]
	}

	id := selected.FingerID
	s.WinnerFingerID = &id
	s.CurrentTaskRef = nil
	s.Round++

	switch s.Mode {
	case ModeSimple:
		selected.Status = PlayerWinner
		s.ActivePlayerCount--
		s.Status = StatusFinished
	case ModeTasks:
		s.Status = StatusTaskAssigned
	}
	return id, nil
}

// AttachTask records a bank task on the session. Other kinds are not kept.
func (s *Session) AttachTask(t Task) {
	if s.Status != StatusTaskAssigned || t.Kind != TaskStored {
		return
	}
	ref := t.Ref
	s.CurrentTaskRef = &ref
}

// ResolveTask applies the outcome reported for the acting player's task.
func (s *Session) ResolveTask(fingerID int, action Action) error {
	if s.Status != StatusTaskAssigned {
		return fmt.Errorf("%w: no task is assigned (status %s)", ErrInvalidState, s.Status)
	}
	if s.WinnerFingerID == nil || *s.WinnerFingerID != fingerID {
		return fmt.Errorf("%w: finger %d", ErrInvalidTarget, fingerID)
	}
	p := s.player(fingerID)
	if p == nil || p.Status != PlayerActive {
		return fmt.Errorf("%w: finger %d is not active", ErrInvalidTarget, fingerID)
	}

	switch action {
	case ActionComplete:
	case ActionFail:
		if !s.EliminationEnabled {
			return ErrEliminationDisabled
		}
		s.eliminate(p)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
	s.endRound()
	return nil
}

// FingerLifted handles a player taking their finger off the surface outside
// the task flow. It reports whether the session changed.
//
// While selecting, the pending pick is void and the session goes back to
// waiting; nobody is eliminated. While a task is assigned and elimination is
// on, the lift counts as a failure for that player.
func (s *Session) FingerLifted(fingerID int) (bool, error) {
	if s.Status == StatusWaiting || s.Status == StatusFinished {
		return false, nil
	}
	p := s.player(fingerID)
	if p == nil {
		return false, fmt.Errorf("%w: unknown finger %d", ErrInvalidTarget, fingerID)
	}
	if p.Status != PlayerActive {
		return false, nil
	}

	switch s.Status {
	case StatusSelecting:
		s.WinnerFingerID = nil
		s.Status = StatusWaiting
		return true, nil
	case StatusTaskAssigned:
		if !s.EliminationEnabled {
			return false, nil
		}
		s.eliminate(p)
		s.endRound()
		return true, nil
	}
	return false, nil
}

// eliminate takes p out of play.
func (s *Session) eliminate(p *Player) {
	p.Status = PlayerEliminated
	s.ActivePlayerCount--
}

// endRound decides between finishing the game and re-arming for another round.
func (s *Session) endRound() {
	s.CurrentTaskRef = nil
	if s.EliminationEnabled {
		switch active := s.activePlayers(); len(active) {
		case 1:
			// The last player standing stays counted, so a game won by
			// elimination finishes with ActivePlayerCount == 1.
			last := active[0]
			last.Status = PlayerWinner
			id := last.FingerID
			s.WinnerFingerID = &id
			s.Status = StatusFinished
			return
		case 0:
			s.WinnerFingerID = nil
			s.Status = StatusFinished
			return
		}
	}
	s.WinnerFingerID = nil
	s.Status = StatusWaiting
}
