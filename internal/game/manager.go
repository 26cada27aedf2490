package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultTaskTimeout = 8 * time.Second
	maxSaveAttempts    = 3
)

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Manager is the entry point for the API layer. It serializes mutations per
// session id and runs every transition as read, mutate, save.
type Manager struct {
	store       Store
	tasks       TaskSource
	taskTimeout time.Duration
	exportFile  string
	now         func() time.Time

	mu        sync.Mutex
	locks     map[string]*sessionLock
	observers []Observer

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Manager)

// WithRand makes random selection reproducible.
func WithRand(r *rand.Rand) Option { return func(m *Manager) { m.rng = r } }

func WithTaskTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.taskTimeout = d
		}
	}
}

// WithExport appends a summary of every finished game to path.
func WithExport(path string) Option { return func(m *Manager) { m.exportFile = path } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(store Store, tasks TaskSource, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		tasks:       tasks,
		taskTimeout: defaultTaskTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		locks:       make(map[string]*sessionLock),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Manager) CreateSession(ctx context.Context, st Settings) (*Session, error) {
	s, err := NewSession(uuid.NewString(), st, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().Str("id", s.ID).Str("mode", string(s.Mode)).Int("numPlayers", s.NumPlayers).Bool("elimination", s.EliminationEnabled).Msg("session created")
	return s, nil
}

func (m *Manager) GetSession(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) StartSelection(ctx context.Context, id string, fingers []int) (*Session, error) {
	return m.mutate(ctx, id, func(s *Session) (bool, error) {
		return true, s.Start(fingers)
	})
}

// PerformSelection picks the acting player and, in tasks mode, fetches the
// task. A task source failure still completes the transition and returns an
// unavailable task.
func (m *Manager) PerformSelection(ctx context.Context, id string, chosen *int) (*SelectionResult, error) {
	var task *Task
	s, err := m.mutate(ctx, id, func(s *Session) (bool, error) {
		task = nil
		if _, err := s.Select(chosen, m.pick); err != nil {
			return false, err
		}
		if s.Mode == ModeTasks {
			t := m.fetchTask(ctx, s)
			s.AttachTask(t)
			task = &t
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &SelectionResult{Session: s, Task: task}, nil
}

func (m *Manager) ResolveTaskOutcome(ctx context.Context, id string, fingerID int, action Action) (*Session, error) {
	return m.mutate(ctx, id, func(s *Session) (bool, error) {
		return true, s.ResolveTask(fingerID, action)
	})
}

func (m *Manager) FingerLifted(ctx context.Context, id string, fingerID int) (*Session, error) {
	return m.mutate(ctx, id, func(s *Session) (bool, error) {
		return s.FingerLifted(fingerID)
	})
}

func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	log.Info().Str("id", id).Msg("session deleted")
	for _, o := range m.snapshotObservers() {
		o.SessionDeleted(id)
	}
	return nil
}

// mutate applies fn to a fresh copy of the session and saves it when fn
// reports a change. Nothing is written when fn fails. A version conflict
// from the store is retried against a re-read copy.
func (m *Manager) mutate(ctx context.Context, id string, fn func(s *Session) (bool, error)) (*Session, error) {
	unlock := m.lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		s, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		from := s.Status
		changed, err := fn(s)
		if err != nil {
			log.Debug().Str("id", id).Str("status", string(from)).Err(err).Msg("transition rejected")
			return nil, err
		}
		if !changed {
			return s, nil
		}
		s.UpdatedAt = m.now()
		err = m.store.Save(ctx, s)
		if errors.Is(err, ErrConflict) && attempt < maxSaveAttempts {
			log.Warn().Str("id", id).Int("attempt", attempt).Msg("session changed underneath, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		log.Info().Str("id", id).Str("from", string(from)).Str("to", string(s.Status)).Int("active", s.ActivePlayerCount).Msg("transition")
		m.afterChange(s, from)
		return s, nil
	}
}

func (m *Manager) afterChange(s *Session, from Status) {
	if s.Status == StatusFinished && from != StatusFinished && m.exportFile != "" {
		if err := ExportSession(s, m.exportFile); err != nil {
			log.Error().Err(err).Str("id", s.ID).Msg("failed to export game result")
		} else {
			log.Info().Str("id", s.ID).Str("file", m.exportFile).Msg("exported game result")
		}
	}
	for _, o := range m.snapshotObservers() {
		o.SessionChanged(s.Clone())
	}
}

// fetchTask bounds the task source call. The source runs in its own goroutine
// so one that ignores ctx still cannot hold the session past the timeout.
func (m *Manager) fetchTask(ctx context.Context, s *Session) Task {
	if m.tasks == nil {
		return UnavailableTask(s.TaskDifficulty, s.UseGeneratedTasks, ErrTaskSourceUnavailable.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, m.taskTimeout)
	defer cancel()

	difficulty, generated := s.TaskDifficulty, s.UseGeneratedTasks
	done := make(chan Task, 1)
	go func() {
		done <- m.tasks.Fetch(ctx, difficulty, generated)
	}()
	select {
	case t := <-done:
		return t
	case <-ctx.Done():
		log.Warn().Str("id", s.ID).Dur("timeout", m.taskTimeout).Msg("task source timed out")
		return UnavailableTask(s.TaskDifficulty, s.UseGeneratedTasks, fmt.Sprintf("%v: %v", ErrTaskSourceUnavailable, ctx.Err()))
	}
}

func (m *Manager) pick(n int) int {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Intn(n)
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l := m.locks[id]
	if l == nil {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

func (m *Manager) snapshotObservers() []Observer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Observer(nil), m.observers...)
}
