package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlemzhanJ/chooseApp/internal/ai"
	"github.com/AlemzhanJ/chooseApp/internal/game"
)

const DefaultSystemPrompt = "You invent short party tasks. Reply with the task text only, no preamble or explanation."

var ErrEmptyTask = errors.New("provider returned an empty task")

// Generator asks a language model for a fresh task. Generated tasks are
// never written to the bank.
type Generator struct {
	provider     ai.Provider
	model        string
	systemPrompt string
}

func NewGenerator(p ai.Provider, model, systemPrompt string) *Generator {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Generator{provider: p, model: model, systemPrompt: systemPrompt}
}

func (g *Generator) Generate(ctx context.Context, d game.Difficulty) (string, error) {
	text, err := g.provider.CompleteWithSystem(ctx, g.model, g.systemPrompt, Prompt(d))
	if err != nil {
		return "", err
	}
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" {
		return "", ErrEmptyTask
	}
	return text, nil
}

// Prompt builds the user prompt for a difficulty tier.
func Prompt(d game.Difficulty) string {
	var tier string
	switch d {
	case game.DifficultyEasy:
		tier = "The task should be very simple, maybe a little silly or physical."
	case game.DifficultyMedium:
		tier = "The task should be moderately hard and may need some creativity or acting."
	case game.DifficultyHard:
		tier = "The task should be hard, unusual or a bit daring, needing wit or courage."
	default:
		d = game.DifficultyAny
		tier = "The task can be of any difficulty."
	}
	return fmt.Sprintf("Invent a short, fun task for a party game where a group of friends picks one lucky player. "+
		"One person must be able to do it within a couple of minutes. Difficulty: %s. %s", d, tier)
}
