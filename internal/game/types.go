package game

import (
	"time"
)

type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusSelecting    Status = "selecting"
	StatusTaskAssigned Status = "task_assigned"
	StatusFinished     Status = "finished"
)

type Mode string

const (
	ModeSimple Mode = "simple"
	ModeTasks  Mode = "tasks"
)

func (m Mode) Valid() bool { return m == ModeSimple || m == ModeTasks }

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyAny    Difficulty = "any"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyAny:
		return true
	}
	return false
}

type PlayerStatus string

const (
	PlayerActive     PlayerStatus = "active"
	PlayerEliminated PlayerStatus = "eliminated"
	PlayerWinner     PlayerStatus = "winner"
)

type Action string

const (
	ActionComplete Action = "complete"
	ActionFail     Action = "fail"
)

// ParseAction accepts the short names and the legacy client names.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "complete", "complete_task":
		return ActionComplete, true
	case "fail", "eliminate":
		return ActionFail, true
	}
	return "", false
}

// Settings are fixed at creation.
type Settings struct {
	NumPlayers         int        `json:"numPlayers"`
	Mode               Mode       `json:"mode"`
	EliminationEnabled bool       `json:"eliminationEnabled"`
	TaskDifficulty     Difficulty `json:"taskDifficulty"`
	UseGeneratedTasks  bool       `json:"useGeneratedTasks"`
	TaskTimeLimit      *int       `json:"taskTimeLimit"` // seconds
}

type Player struct {
	FingerID int          `json:"fingerId"`
	Status   PlayerStatus `json:"status"`
}

type Session struct {
	ID string `json:"id"`
	Settings

	Status            Status   `json:"status"`
	Players           []Player `json:"players"`
	CurrentTaskRef    *string  `json:"currentTaskRef"`
	WinnerFingerID    *int     `json:"winnerFingerId"`
	ActivePlayerCount int      `json:"activePlayerCount"`
	Round             int      `json:"round"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so stores and callers never share slices or pointers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Players != nil {
		c.Players = append(make([]Player, 0, len(s.Players)), s.Players...)
	}
	if s.TaskTimeLimit != nil {
		v := *s.TaskTimeLimit
		c.TaskTimeLimit = &v
	}
	if s.CurrentTaskRef != nil {
		v := *s.CurrentTaskRef
		c.CurrentTaskRef = &v
	}
	if s.WinnerFingerID != nil {
		v := *s.WinnerFingerID
		c.WinnerFingerID = &v
	}
	return &c
}

func (s *Session) player(fingerID int) *Player {
	for i := range s.Players {
		if s.Players[i].FingerID == fingerID {
			return &s.Players[i]
		}
	}
	return nil
}

// Player returns a copy of the player with the given finger id.
func (s *Session) Player(fingerID int) (Player, bool) {
	p := s.player(fingerID)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

func (s *Session) activePlayers() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for i := range s.Players {
		if s.Players[i].Status == PlayerActive {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

// Winner returns the player holding winner status, if any.
func (s *Session) Winner() (Player, bool) {
	for _, p := range s.Players {
		if p.Status == PlayerWinner {
			return p, true
		}
	}
	return Player{}, false
}

type TaskKind string

const (
	TaskStored      TaskKind = "stored"
	TaskGenerated   TaskKind = "generated"
	TaskUnavailable TaskKind = "unavailable"
)

// Task is what a selection in tasks mode hands to the acting player.
// Only stored tasks are referenced from the session; generated and
// unavailable tasks are returned to the caller and then forgotten.
type Task struct {
	Kind        TaskKind   `json:"kind"`
	Ref         string     `json:"ref,omitempty"`
	Text        string     `json:"text"`
	Difficulty  Difficulty `json:"difficulty"`
	IsGenerated bool       `json:"isGenerated"`
	Error       bool       `json:"error,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func StoredTask(ref, text string, d Difficulty) Task {
	return Task{Kind: TaskStored, Ref: ref, Text: text, Difficulty: d}
}

func GeneratedTask(text string, d Difficulty) Task {
	return Task{Kind: TaskGenerated, Text: text, Difficulty: d, IsGenerated: true}
}

func UnavailableTask(d Difficulty, generated bool, reason string) Task {
	text := "No task could be found for this round."
	if generated {
		text = "The task could not be generated."
	}
	return Task{Kind: TaskUnavailable, Text: text, Difficulty: d, IsGenerated: generated, Error: true, Reason: reason}
}

// SelectionResult is returned by PerformSelection. Task is nil in simple mode.
type SelectionResult struct {
	Session *Session `json:"game"`
	Task    *Task    `json:"task,omitempty"`
}
