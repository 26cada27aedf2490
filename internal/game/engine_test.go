package game

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"
)

func newTestSession(t *testing.T, st Settings) *Session {
	t.Helper()
	s, err := NewSession("test", st, time.Unix(0, 0).UTC())
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	return s
}

func first(int) int { return 0 }

func intp(v int) *int { return &v }

func checkInvariants(t *testing.T, s *Session) {
	t.Helper()
	active, winners := 0, 0
	for _, p := range s.Players {
		switch p.Status {
		case PlayerActive:
			active++
		case PlayerWinner:
			winners++
		}
	}
	want := active
	if s.Status == StatusFinished && s.Mode == ModeTasks && winners == 1 {
		// last player standing after eliminations
		want = active + 1
	}
	if s.ActivePlayerCount != want {
		t.Fatalf("activePlayerCount %d, want %d (%d active, status %s)", s.ActivePlayerCount, want, active, s.Status)
	}
	if s.ActivePlayerCount < 0 {
		t.Fatalf("activePlayerCount went negative: %d", s.ActivePlayerCount)
	}
	if s.WinnerFingerID != nil {
		if _, ok := s.Player(*s.WinnerFingerID); !ok {
			t.Fatalf("winnerFingerId %d references no player", *s.WinnerFingerID)
		}
	}
	wantWinners := 0
	if s.Status == StatusFinished && s.WinnerFingerID != nil {
		wantWinners = 1
	}
	if winners != wantWinners {
		t.Fatalf("expected %d winners in status %s, got %d", wantWinners, s.Status, winners)
	}
}

func TestNewSessionValidation(t *testing.T) {
	cases := []struct {
		name string
		st   Settings
	}{
		{"no players", Settings{NumPlayers: 0, Mode: ModeSimple}},
		{"bad mode", Settings{NumPlayers: 2, Mode: "chaos"}},
		{"bad difficulty", Settings{NumPlayers: 2, Mode: ModeTasks, TaskDifficulty: "brutal"}},
		{"timer without elimination", Settings{NumPlayers: 2, Mode: ModeTasks, TaskTimeLimit: intp(30)}},
		{"non-positive timer", Settings{NumPlayers: 2, Mode: ModeTasks, EliminationEnabled: true, TaskTimeLimit: intp(0)}},
	}
	for _, tc := range cases {
		if _, err := NewSession("x", tc.st, time.Now()); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}

	s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeSimple, EliminationEnabled: true})
	if s.Status != StatusWaiting {
		t.Fatalf("expected status %s, got %s", StatusWaiting, s.Status)
	}
	if s.TaskDifficulty != DifficultyAny {
		t.Fatalf("expected default difficulty any, got %s", s.TaskDifficulty)
	}
	if s.EliminationEnabled {
		t.Fatal("elimination should be dropped in simple mode")
	}
	if len(s.Players) != 0 || s.ActivePlayerCount != 0 {
		t.Fatal("new session should have no players")
	}
}

func TestSimpleModeScenario(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeSimple})
	if err := s.Start([]int{0, 1, 2}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Status != StatusSelecting {
		t.Fatalf("expected selecting, got %s", s.Status)
	}
	checkInvariants(t, s)

	id, err := s.Select(intp(1), first)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if id != 1 || s.WinnerFingerID == nil || *s.WinnerFingerID != 1 {
		t.Fatalf("expected finger 1 selected, got %d", id)
	}
	if s.Status != StatusFinished {
		t.Fatalf("expected finished, got %s", s.Status)
	}
	if p, _ := s.Player(1); p.Status != PlayerWinner {
		t.Fatalf("expected player 1 winner, got %s", p.Status)
	}
	if s.ActivePlayerCount != 2 {
		t.Fatalf("expected 2 active players left, got %d", s.ActivePlayerCount)
	}
	checkInvariants(t, s)
}

func TestSimpleModeAlwaysOneWinner(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		s := newTestSession(t, Settings{NumPlayers: 5, Mode: ModeSimple})
		if err := s.Start([]int{10, 11, 12, 13, 14}); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := s.Select(nil, rng.Intn); err != nil {
			t.Fatalf("select: %v", err)
		}
		if s.Status != StatusFinished {
			t.Fatalf("expected finished, got %s", s.Status)
		}
		if _, ok := s.Winner(); !ok {
			t.Fatal("expected a winner")
		}
		checkInvariants(t, s)
	}
}

func TestTasksEliminationScenario(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeTasks, EliminationEnabled: true})
	if err := s.Start([]int{0, 1}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Select(intp(0), first); err != nil {
		t.Fatalf("select: %v", err)
	}
	if s.Status != StatusTaskAssigned || *s.WinnerFingerID != 0 {
		t.Fatalf("expected task_assigned for finger 0, got %s", s.Status)
	}
	checkInvariants(t, s)

	if err := s.ResolveTask(0, ActionFail); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.ActivePlayerCount != 1 {
		t.Fatalf("expected activePlayerCount 1, got %d", s.ActivePlayerCount)
	}
	if p, _ := s.Player(1); p.Status != PlayerWinner {
		t.Fatalf("expected player 1 winner, got %s", p.Status)
	}
	if s.Status != StatusFinished || *s.WinnerFingerID != 1 {
		t.Fatalf("expected finished with winner 1, got %s", s.Status)
	}
	checkInvariants(t, s)
}

func TestTasksWithoutEliminationScenario(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 4, Mode: ModeTasks})
	if err := s.Start([]int{0, 1, 2, 3}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Select(intp(2), first); err != nil {
		t.Fatalf("select: %v", err)
	}
	if s.Status != StatusTaskAssigned {
		t.Fatalf("expected task_assigned, got %s", s.Status)
	}
	s.AttachTask(StoredTask("task-1", "dance", DifficultyAny))
	if s.CurrentTaskRef == nil || *s.CurrentTaskRef != "task-1" {
		t.Fatal("stored task should be referenced")
	}

	if err := s.ResolveTask(2, ActionComplete); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Status != StatusWaiting {
		t.Fatalf("expected waiting, got %s", s.Status)
	}
	for _, p := range s.Players {
		if p.Status != PlayerActive {
			t.Fatalf("player %d should still be active, got %s", p.FingerID, p.Status)
		}
	}
	if s.CurrentTaskRef != nil || s.WinnerFingerID != nil {
		t.Fatal("task and actor should be cleared")
	}
	checkInvariants(t, s)

	// next round re-arms with the same players
	if err := s.Start([]int{0, 1, 2, 3}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(s.Players) != 4 || s.Status != StatusSelecting {
		t.Fatalf("expected 4 players selecting, got %d %s", len(s.Players), s.Status)
	}
}

func TestFailWithoutEliminationIsRejected(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeTasks})
	_ = s.Start([]int{0, 1})
	_, _ = s.Select(intp(0), first)
	before := s.Clone()
	if err := s.ResolveTask(0, ActionFail); !errors.Is(err, ErrEliminationDisabled) {
		t.Fatalf("expected ErrEliminationDisabled, got %v", err)
	}
	if !reflect.DeepEqual(before, s) {
		t.Fatal("rejected fail must not change the session")
	}
}

func TestStartRejectsWrongState(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeTasks, EliminationEnabled: true})
	if err := s.Start(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty fingers, got %v", err)
	}
	if err := s.Start([]int{1, 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate fingers, got %v", err)
	}
	if err := s.Start([]int{0, 1}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, status := range []Status{StatusSelecting, StatusTaskAssigned, StatusFinished} {
		s.Status = status
		before := s.Clone()
		if err := s.Start([]int{0, 1}); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("%s: expected ErrInvalidState, got %v", status, err)
		}
		if !reflect.DeepEqual(before, s) {
			t.Fatalf("%s: failed start must not change the session", status)
		}
	}
}

func TestRestartOnlyAcceptsActivePlayers(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeTasks, EliminationEnabled: true})
	_ = s.Start([]int{0, 1, 2})
	_, _ = s.Select(intp(0), first)
	if err := s.ResolveTask(0, ActionFail); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Status != StatusWaiting {
		t.Fatalf("expected waiting, got %s", s.Status)
	}
	if err := s.Start([]int{0, 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("eliminated finger should be rejected, got %v", err)
	}
	if err := s.Start([]int{7}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown finger should be rejected, got %v", err)
	}
	if err := s.Start([]int{2}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing active finger should be rejected, got %v", err)
	}
	if err := s.Start([]int{2, 1}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(s.Players) != 3 {
		t.Fatalf("player list must stay fixed, got %d", len(s.Players))
	}
}

func TestLoopBackRoundNeedsEveryActiveFinger(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 4, Mode: ModeTasks})
	_ = s.Start([]int{0, 1, 2, 3})
	_, _ = s.Select(intp(0), first)
	if err := s.ResolveTask(0, ActionComplete); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	before := s.Clone()
	if err := s.Start([]int{0, 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("partial finger set should be rejected, got %v", err)
	}
	if !reflect.DeepEqual(before, s) {
		t.Fatal("rejected start must not change the session")
	}

	if err := s.Start([]int{3, 2, 1, 0}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	id, err := s.Select(nil, func(n int) int { return n - 1 })
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected finger 3, got %d", id)
	}
	checkInvariants(t, s)
}

func TestSelectFallsBackToRandom(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeTasks, EliminationEnabled: true})
	_ = s.Start([]int{0, 1, 2})
	_, _ = s.Select(intp(0), first)
	_ = s.ResolveTask(0, ActionFail)
	_ = s.Start([]int{1, 2})

	// finger 0 is eliminated and 9 does not exist; both fall back to pick
	for _, chosen := range []*int{intp(0), intp(9), nil} {
		c := s.Clone()
		id, err := c.Select(chosen, func(n int) int { return n - 1 })
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if id != 2 {
			t.Fatalf("expected fallback to last active player 2, got %d", id)
		}
	}
}

func TestSelectRequiresSelectingAndActivePlayers(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeSimple})
	if _, err := s.Select(nil, first); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	_ = s.Start([]int{0, 1})
	for i := range s.Players {
		s.Players[i].Status = PlayerEliminated
	}
	s.ActivePlayerCount = 0
	if _, err := s.Select(nil, first); !errors.Is(err, ErrNoActivePlayers) {
		t.Fatalf("expected ErrNoActivePlayers, got %v", err)
	}
}

func TestResolveTaskTargetsOnlyTheActor(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeTasks, EliminationEnabled: true})
	_ = s.Start([]int{0, 1, 2})
	_, _ = s.Select(intp(1), first)
	before := s.Clone()
	for _, f := range []int{0, 2, 42} {
		if err := s.ResolveTask(f, ActionFail); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("finger %d: expected ErrInvalidTarget, got %v", f, err)
		}
	}
	if err := s.ResolveTask(1, Action("skip")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown action, got %v", err)
	}
	if !reflect.DeepEqual(before, s) {
		t.Fatal("rejected outcomes must not change the session")
	}
}

func TestRepeatedFailDoesNotDoubleDecrement(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeTasks, EliminationEnabled: true, TaskTimeLimit: intp(10)})
	_ = s.Start([]int{0, 1, 2})
	_, _ = s.Select(intp(0), first)
	if err := s.ResolveTask(0, ActionFail); err != nil {
		t.Fatalf("first fail: %v", err)
	}
	count := s.ActivePlayerCount
	// a late timer expiry for the same player
	if err := s.ResolveTask(0, ActionFail); err == nil {
		t.Fatal("second fail should be rejected")
	}
	if s.ActivePlayerCount != count {
		t.Fatalf("activePlayerCount changed from %d to %d", count, s.ActivePlayerCount)
	}
	checkInvariants(t, s)
}

func TestEliminationRunsDownToOneWinner(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := newTestSession(t, Settings{NumPlayers: 6, Mode: ModeTasks, EliminationEnabled: true})
	fingers := []int{0, 1, 2, 3, 4, 5}
	if err := s.Start(fingers); err != nil {
		t.Fatalf("start: %v", err)
	}
	prev := s.ActivePlayerCount
	for s.Status != StatusFinished {
		if s.Status == StatusWaiting {
			var active []int
			for _, p := range s.activePlayers() {
				active = append(active, p.FingerID)
			}
			if err := s.Start(active); err != nil {
				t.Fatalf("restart: %v", err)
			}
		}
		id, err := s.Select(nil, rng.Intn)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if err := s.ResolveTask(id, ActionFail); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if s.ActivePlayerCount >= prev {
			t.Fatalf("activePlayerCount should decrease, was %d now %d", prev, s.ActivePlayerCount)
		}
		prev = s.ActivePlayerCount
		checkInvariants(t, s)
	}
	if s.ActivePlayerCount != 1 {
		t.Fatalf("expected 1 player left, got %d", s.ActivePlayerCount)
	}
	if _, ok := s.Winner(); !ok {
		t.Fatal("expected a winner")
	}
}

func TestSinglePlayerFailIsADraw(t *testing.T) {
	s := newTestSession(t, Settings{NumPlayers: 1, Mode: ModeTasks, EliminationEnabled: true})
	_ = s.Start([]int{0})
	_, _ = s.Select(nil, first)
	if err := s.ResolveTask(0, ActionFail); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Status != StatusFinished || s.WinnerFingerID != nil || s.ActivePlayerCount != 0 {
		t.Fatalf("expected finished draw, got %s winner=%v active=%d", s.Status, s.WinnerFingerID, s.ActivePlayerCount)
	}
	checkInvariants(t, s)
}

func TestFingerLifted(t *testing.T) {
	t.Run("ignored while waiting or finished", func(t *testing.T) {
		s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeSimple})
		if changed, err := s.FingerLifted(0); changed || err != nil {
			t.Fatalf("waiting: expected no-op, got %v %v", changed, err)
		}
		_ = s.Start([]int{0, 1})
		_, _ = s.Select(intp(0), first)
		if changed, err := s.FingerLifted(1); changed || err != nil {
			t.Fatalf("finished: expected no-op, got %v %v", changed, err)
		}
	})

	t.Run("selecting reverts to waiting", func(t *testing.T) {
		s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeTasks, EliminationEnabled: true})
		_ = s.Start([]int{0, 1, 2})
		changed, err := s.FingerLifted(2)
		if err != nil || !changed {
			t.Fatalf("expected change, got %v %v", changed, err)
		}
		if s.Status != StatusWaiting {
			t.Fatalf("expected waiting, got %s", s.Status)
		}
		if p, _ := s.Player(2); p.Status != PlayerActive {
			t.Fatalf("nobody is eliminated during selection, got %s", p.Status)
		}
		checkInvariants(t, s)
	})

	t.Run("task assigned eliminates", func(t *testing.T) {
		s := newTestSession(t, Settings{NumPlayers: 3, Mode: ModeTasks, EliminationEnabled: true})
		_ = s.Start([]int{0, 1, 2})
		_, _ = s.Select(intp(0), first)
		changed, err := s.FingerLifted(0)
		if err != nil || !changed {
			t.Fatalf("expected change, got %v %v", changed, err)
		}
		if p, _ := s.Player(0); p.Status != PlayerEliminated {
			t.Fatalf("expected eliminated, got %s", p.Status)
		}
		if s.Status != StatusWaiting || s.ActivePlayerCount != 2 {
			t.Fatalf("expected waiting with 2 players, got %s %d", s.Status, s.ActivePlayerCount)
		}
		if changed, _ := s.FingerLifted(0); changed {
			t.Fatal("lifting an eliminated finger again must be a no-op")
		}
		checkInvariants(t, s)
	})

	t.Run("task assigned without elimination is ignored", func(t *testing.T) {
		s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeTasks})
		_ = s.Start([]int{0, 1})
		_, _ = s.Select(intp(0), first)
		before := s.Clone()
		if changed, err := s.FingerLifted(0); changed || err != nil {
			t.Fatalf("expected no-op, got %v %v", changed, err)
		}
		if !reflect.DeepEqual(before, s) {
			t.Fatal("session must not change")
		}
	})

	t.Run("unknown finger", func(t *testing.T) {
		s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeTasks})
		_ = s.Start([]int{0, 1})
		if _, err := s.FingerLifted(5); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("selecting: expected ErrInvalidTarget, got %v", err)
		}
		_, _ = s.Select(intp(0), first)
		if _, err := s.FingerLifted(5); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("task assigned: expected ErrInvalidTarget, got %v", err)
		}
		_ = s.ResolveTask(0, ActionComplete)
		if changed, err := s.FingerLifted(5); changed || err != nil {
			t.Fatalf("waiting: lifts are ignored, got %v %v", changed, err)
		}
	})

	t.Run("last opponent lifting ends the game", func(t *testing.T) {
		s := newTestSession(t, Settings{NumPlayers: 2, Mode: ModeTasks, EliminationEnabled: true})
		_ = s.Start([]int{0, 1})
		_, _ = s.Select(intp(0), first)
		if _, err := s.FingerLifted(1); err != nil {
			t.Fatalf("lift: %v", err)
		}
		if s.Status != StatusFinished || *s.WinnerFingerID != 0 {
			t.Fatalf("expected finger 0 to win, got %s", s.Status)
		}
		checkInvariants(t, s)
	})
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{
		"complete": ActionComplete, "complete_task": ActionComplete,
		"fail": ActionFail, "eliminate": ActionFail,
	} {
		got, ok := ParseAction(in)
		if !ok || got != want {
			t.Fatalf("ParseAction(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseAction("dance"); ok {
		t.Fatal("unknown action should not parse")
	}
}
