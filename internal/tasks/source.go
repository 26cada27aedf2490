package tasks

import (
	"context"
	"fmt"

	"github.com/AlemzhanJ/chooseApp/internal/game"
	"github.com/rs/zerolog/log"
)

// Source picks between the bank and the generator per session setting.
// It implements game.TaskSource.
type Source struct {
	bank Bank
	gen  *Generator
}

// NewSource accepts a nil generator; generated requests then degrade to
// unavailable tasks.
func NewSource(bank Bank, gen *Generator) *Source {
	return &Source{bank: bank, gen: gen}
}

func (s *Source) Fetch(ctx context.Context, d game.Difficulty, useGenerated bool) game.Task {
	if useGenerated {
		if s.gen == nil {
			return game.UnavailableTask(d, true, fmt.Sprintf("%v: no generator configured", game.ErrTaskSourceUnavailable))
		}
		text, err := s.gen.Generate(ctx, d)
		if err != nil {
			log.Warn().Err(err).Str("difficulty", string(d)).Msg("task generation failed")
			return game.UnavailableTask(d, true, fmt.Sprintf("%v: %v", game.ErrTaskSourceUnavailable, err))
		}
		return game.GeneratedTask(text, d)
	}

	if s.bank == nil {
		return game.UnavailableTask(d, false, fmt.Sprintf("%v: no task bank configured", game.ErrTaskSourceUnavailable))
	}
	t, err := s.bank.Random(ctx, d)
	if err != nil {
		log.Warn().Err(err).Str("difficulty", string(d)).Msg("no bank task")
		return game.UnavailableTask(d, false, fmt.Sprintf("%v: %v", game.ErrTaskSourceUnavailable, err))
	}
	return t.Task()
}

// Generate exposes the generator for the standalone endpoint.
func (s *Source) Generate(ctx context.Context, d game.Difficulty) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("%w: no generator configured", game.ErrTaskSourceUnavailable)
	}
	return s.gen.Generate(ctx, d)
}
