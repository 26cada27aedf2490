package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/AlemzhanJ/chooseApp/internal/game"
	"github.com/google/uuid"
)

var (
	ErrNoTasks      = errors.New("no tasks found matching the criteria")
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
)

type BankTask struct {
	ID         string          `json:"id"`
	Text       string          `json:"text"`
	Difficulty game.Difficulty `json:"difficulty"`
	Category   string          `json:"category,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (t BankTask) Task() game.Task {
	return game.StoredTask(t.ID, t.Text, t.Difficulty)
}

// Bank is the static task collection.
type Bank interface {
	// Random returns a uniformly chosen task. DifficultyAny matches every task.
	Random(ctx context.Context, d game.Difficulty) (BankTask, error)
	Add(ctx context.Context, text string, d game.Difficulty, category string) (BankTask, error)
	Get(ctx context.Context, id string) (BankTask, error)
}

func validateTask(text string, d game.Difficulty) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidTask)
	}
	switch d {
	case game.DifficultyEasy, game.DifficultyMedium, game.DifficultyHard:
	default:
		return "", fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidTask)
	}
	return text, nil
}

// MemoryBank is a Bank held in process, used when no database is configured.
type MemoryBank struct {
	mu    sync.RWMutex
	tasks []BankTask
	rng   *rand.Rand
}

func NewMemoryBank(seed []BankTask) *MemoryBank {
	b := &MemoryBank{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for _, t := range seed {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		b.tasks = append(b.tasks, t)
	}
	return b
}

func (b *MemoryBank) Random(_ context.Context, d game.Difficulty) (BankTask, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	matching := make([]BankTask, 0, len(b.tasks))
	for _, t := range b.tasks {
		if d == game.DifficultyAny || d == "" || t.Difficulty == d {
			matching = append(matching, t)
		}
	}
	if len(matching) == 0 {
		return BankTask{}, ErrNoTasks
	}
	return matching[b.rng.Intn(len(matching))], nil
}

func (b *MemoryBank) Add(_ context.Context, text string, d game.Difficulty, category string) (BankTask, error) {
	text, err := validateTask(text, d)
	if err != nil {
		return BankTask{}, err
	}
	t := BankTask{ID: uuid.NewString(), Text: text, Difficulty: d, Category: strings.TrimSpace(category), CreatedAt: time.Now().UTC()}
	b.mu.Lock()
	b.tasks = append(b.tasks, t)
	b.mu.Unlock()
	return t, nil
}

func (b *MemoryBank) Get(_ context.Context, id string) (BankTask, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, t := range b.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return BankTask{}, ErrTaskNotFound
}

// DefaultTasks seed the in-memory bank.
var DefaultTasks = []BankTask{
	{Text: "Do ten jumping jacks.", Difficulty: game.DifficultyEasy, Category: "physical"},
	{Text: "Say the alphabet backwards as fast as you can.", Difficulty: game.DifficultyEasy, Category: "silly"},
	{Text: "Imitate an animal until someone guesses it.", Difficulty: game.DifficultyEasy, Category: "acting"},
	{Text: "Tell a joke that makes at least one player laugh.", Difficulty: game.DifficultyMedium, Category: "social"},
	{Text: "Sing the chorus of a song chosen by the player on your left.", Difficulty: game.DifficultyMedium, Category: "music"},
	{Text: "Speak only in questions until your next turn.", Difficulty: game.DifficultyMedium, Category: "social"},
	{Text: "Perform a one-minute dramatic monologue about your shoes.", Difficulty: game.DifficultyHard, Category: "acting"},
	{Text: "Balance a spoon on your nose for ten seconds.", Difficulty: game.DifficultyHard, Category: "physical"},
	{Text: "Let the group pick a word you must use in every sentence for five minutes.", Difficulty: game.DifficultyHard, Category: "social"},
}
