package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlemzhanJ/chooseApp/internal/game"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameRecord is the games row (GORM).
type GameRecord struct {
	ID                 string        `gorm:"type:uuid;primaryKey"`
	NumPlayers         int           `gorm:"not null"`
	Mode               string        `gorm:"size:16;not null"`
	EliminationEnabled bool          `gorm:"not null;default:false"`
	TaskDifficulty     string        `gorm:"size:16;not null;default:any"`
	UseGeneratedTasks  bool          `gorm:"not null;default:false"`
	TaskTimeLimit      *int          `gorm:"column:task_time_limit"`
	Status             string        `gorm:"size:20;not null;default:waiting"`
	Players            []game.Player `gorm:"type:jsonb;serializer:json;not null"`
	CurrentTaskRef     *string       `gorm:"type:uuid;column:current_task_ref"`
	WinnerFingerID     *int          `gorm:"column:winner_finger_id"`
	ActivePlayerCount  int           `gorm:"not null;default:0"`
	Round              int           `gorm:"not null;default:0"`
	Version            int64         `gorm:"not null;default:1"`
	CreatedAt          time.Time     `gorm:"autoCreateTime"`
	UpdatedAt          time.Time
}

func (GameRecord) TableName() string { return "games" }

// Postgres stores sessions in the games table. Save only succeeds when the
// version column still matches the version the session was read with.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Create(ctx context.Context, s *game.Session) error {
	s.Version = 1
	rec := toRecord(s)
	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	s.CreatedAt = rec.CreatedAt
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*game.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", game.ErrNotFound, id)
	}
	var rec GameRecord
	if err := p.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", game.ErrNotFound, id)
		}
		return nil, err
	}
	return fromRecord(&rec), nil
}

func (p *Postgres) Save(ctx context.Context, s *game.Session) error {
	rec := toRecord(s)
	rec.Version = s.Version + 1
	res := p.db.WithContext(ctx).
		Model(&GameRecord{}).
		Where("id = ? AND version = ?", s.ID, s.Version).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := p.db.WithContext(ctx).Model(&GameRecord{}).Where("id = ?", s.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", game.ErrNotFound, s.ID)
		}
		return fmt.Errorf("%w: version %d is stale", game.ErrConflict, s.Version)
	}
	s.Version = rec.Version
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	return p.db.WithContext(ctx).Where("id = ?", id).Delete(&GameRecord{}).Error
}

func toRecord(s *game.Session) *GameRecord {
	players := s.Players
	if players == nil {
		players = []game.Player{}
	}
	return &GameRecord{
		ID:                 s.ID,
		NumPlayers:         s.NumPlayers,
		Mode:               string(s.Mode),
		EliminationEnabled: s.EliminationEnabled,
		TaskDifficulty:     string(s.TaskDifficulty),
		UseGeneratedTasks:  s.UseGeneratedTasks,
		TaskTimeLimit:      s.TaskTimeLimit,
		Status:             string(s.Status),
		Players:            players,
		CurrentTaskRef:     s.CurrentTaskRef,
		WinnerFingerID:     s.WinnerFingerID,
		ActivePlayerCount:  s.ActivePlayerCount,
		Round:              s.Round,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromRecord(rec *GameRecord) *game.Session {
	return &game.Session{
		ID: rec.ID,
		Settings: game.Settings{
			NumPlayers:         rec.NumPlayers,
			Mode:               game.Mode(rec.Mode),
			EliminationEnabled: rec.EliminationEnabled,
			TaskDifficulty:     game.Difficulty(rec.TaskDifficulty),
			UseGeneratedTasks:  rec.UseGeneratedTasks,
			TaskTimeLimit:      rec.TaskTimeLimit,
		},
		Status:            game.Status(rec.Status),
		Players:           append([]game.Player{}, rec.Players...),
		CurrentTaskRef:    rec.CurrentTaskRef,
		WinnerFingerID:    rec.WinnerFingerID,
		ActivePlayerCount: rec.ActivePlayerCount,
		Round:             rec.Round,
		Version:           rec.Version,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}
