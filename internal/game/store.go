package game

import "context"

// Store persists sessions. Save must fail with ErrConflict when the stored
// version differs from s.Version and bump the version on success; Delete is
// idempotent.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// TaskSource hands out the task for a selected player. Fetch never fails;
// problems come back as an unavailable task.
type TaskSource interface {
	Fetch(ctx context.Context, difficulty Difficulty, useGenerated bool) Task
}

// Observer is told about every persisted change.
type Observer interface {
	SessionChanged(s *Session)
	SessionDeleted(id string)
}
