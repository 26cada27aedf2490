package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AlemzhanJ/chooseApp/internal/ai"
	"github.com/AlemzhanJ/chooseApp/internal/ai/gemini"
	"github.com/AlemzhanJ/chooseApp/internal/ai/ollama"
	"github.com/AlemzhanJ/chooseApp/internal/ai/openai"
	"github.com/AlemzhanJ/chooseApp/internal/api"
	"github.com/AlemzhanJ/chooseApp/internal/config"
	"github.com/AlemzhanJ/chooseApp/internal/database"
	"github.com/AlemzhanJ/chooseApp/internal/game"
	"github.com/AlemzhanJ/chooseApp/internal/store"
	"github.com/AlemzhanJ/chooseApp/internal/tasks"
	"github.com/AlemzhanJ/chooseApp/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and Socket.IO API (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	var (
		sessions game.Store
		bank     tasks.Bank
	)
	switch cfg.Store {
	case "postgres":
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		sessions = store.NewPostgres(db)
		bank = tasks.NewPostgresBank(db)
	default:
		sessions = store.NewMemory()
		bank = tasks.NewMemoryBank(tasks.DefaultTasks)
	}

	var gen *tasks.Generator
	if p := newProvider(cfg); p != nil {
		gen = tasks.NewGenerator(p, cfg.TaskModel, cfg.SystemPrompt)
	}
	source := tasks.NewSource(bank, gen)

	opts := []game.Option{game.WithTaskTimeout(cfg.TaskTimeout)}
	if cfg.ExportEnabled {
		opts = append(opts, game.WithExport(cfg.ExportFile))
	}
	mgr := game.NewManager(sessions, source, opts...)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestLogger())
	r.Use(api.CORS(cfg.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	sock := ws.New(mgr)
	io := sock.Mount(r)
	defer io.Close()
	mgr.AddObserver(sock)

	api.New(mgr, bank, source).Register(r.Group("/api"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store).Str("provider", cfg.TaskProvider).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func newProvider(cfg *config.Config) ai.Provider {
	switch cfg.TaskProvider {
	case "gemini":
		return gemini.New(cfg.GeminiKey, "")
	case "openai":
		return openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	case "ollama":
		return ollama.New(cfg.OllamaHost)
	}
	return nil
}
