package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportSession appends a summary of a finished session to a text file.
func ExportSession(s *Session, filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if fileExists {
		sb.WriteString("\n") // spacing between sessions
	}
	sb.WriteString(fmt.Sprintf("chooseApp Game Result - Session %s\n", s.ID))
	sb.WriteString(fmt.Sprintf("Started: %s\n", s.CreatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	mode := string(s.Mode)
	if s.Mode == ModeTasks {
		mode += fmt.Sprintf(" (difficulty %s", s.TaskDifficulty)
		if s.EliminationEnabled {
			mode += ", elimination"
		}
		if s.UseGeneratedTasks {
			mode += ", generated tasks"
		}
		mode += ")"
	}
	sb.WriteString(fmt.Sprintf("Mode: %s\n", mode))
	sb.WriteString(fmt.Sprintf("Rounds: %d\n", s.Round))

	sb.WriteString("\nPlayers:\n")
	for _, p := range s.Players {
		sb.WriteString(fmt.Sprintf("- finger %d: %s\n", p.FingerID, p.Status))
	}

	if w, ok := s.Winner(); ok {
		sb.WriteString(fmt.Sprintf("\nWinner: finger %d\n", w.FingerID))
	} else {
		sb.WriteString("\nNo winner (draw)\n")
	}

	sb.WriteString(fmt.Sprintf("Game ended at %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
