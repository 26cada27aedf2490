package ai

import (
	"context"
	"errors"
	"fmt"
)

type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}

var (
	ErrMissingKey = errors.New("missing api key")
	ErrNoChoices  = errors.New("no choices")
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d", e.Provider, e.Code)
}
