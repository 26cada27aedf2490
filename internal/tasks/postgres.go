package tasks

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/AlemzhanJ/chooseApp/internal/game"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskRecord is the tasks row (GORM).
type TaskRecord struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	Text       string    `gorm:"type:text;not null"`
	Difficulty string    `gorm:"size:16;not null;default:medium;index"`
	Category   string    `gorm:"size:64"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (TaskRecord) TableName() string { return "tasks" }

func (r TaskRecord) bankTask() BankTask {
	return BankTask{ID: r.ID, Text: r.Text, Difficulty: game.Difficulty(r.Difficulty), Category: r.Category, CreatedAt: r.CreatedAt}
}

type PostgresBank struct {
	db *gorm.DB

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPostgresBank(db *gorm.DB) *PostgresBank {
	return &PostgresBank{db: db, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Random counts the matching rows and reads the one at a random offset.
func (b *PostgresBank) Random(ctx context.Context, d game.Difficulty) (BankTask, error) {
	q := b.db.WithContext(ctx).Model(&TaskRecord{})
	if d != game.DifficultyAny && d != "" {
		q = q.Where("difficulty = ?", string(d))
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return BankTask{}, err
	}
	if count == 0 {
		return BankTask{}, ErrNoTasks
	}
	b.mu.Lock()
	offset := b.rng.Int63n(count)
	b.mu.Unlock()

	var rec TaskRecord
	q = b.db.WithContext(ctx).Model(&TaskRecord{})
	if d != game.DifficultyAny && d != "" {
		q = q.Where("difficulty = ?", string(d))
	}
	if err := q.Order("created_at, id").Offset(int(offset)).Limit(1).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// rows deleted between count and read
			return BankTask{}, ErrNoTasks
		}
		return BankTask{}, err
	}
	return rec.bankTask(), nil
}

func (b *PostgresBank) Add(ctx context.Context, text string, d game.Difficulty, category string) (BankTask, error) {
	text, err := validateTask(text, d)
	if err != nil {
		return BankTask{}, err
	}
	rec := &TaskRecord{ID: uuid.NewString(), Text: text, Difficulty: string(d), Category: strings.TrimSpace(category)}
	if err := b.db.WithContext(ctx).Create(rec).Error; err != nil {
		return BankTask{}, err
	}
	return rec.bankTask(), nil
}

func (b *PostgresBank) Get(ctx context.Context, id string) (BankTask, error) {
	if _, err := uuid.Parse(id); err != nil {
		return BankTask{}, ErrTaskNotFound
	}
	var rec TaskRecord
	if err := b.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BankTask{}, ErrTaskNotFound
		}
		return BankTask{}, err
	}
	return rec.bankTask(), nil
}
