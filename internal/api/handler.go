package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/AlemzhanJ/chooseApp/internal/game"
	"github.com/AlemzhanJ/chooseApp/internal/tasks"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Generator produces task text that is not stored anywhere.
type Generator interface {
	Generate(ctx context.Context, d game.Difficulty) (string, error)
}

type Handler struct {
	games *game.Manager
	bank  tasks.Bank
	gen   Generator
}

func New(games *game.Manager, bank tasks.Bank, gen Generator) *Handler {
	return &Handler{games: games, bank: bank, gen: gen}
}

// Register mounts the game and task routes on r.
func (h *Handler) Register(r gin.IRouter) {
	games := r.Group("/games")
	{
		games.POST("", h.CreateGame)
		games.GET("/:id", h.GetGame)
		games.PUT("/:id/start", h.StartSelection)
		games.POST("/:id/select", h.PerformSelection)
		games.PUT("/:id/players/:fingerId", h.ResolveTaskOutcome)
		games.POST("/:id/players/:fingerId/lift", h.FingerLifted)
		games.DELETE("/:id", h.DeleteGame)
	}
	tasksGroup := r.Group("/tasks")
	{
		tasksGroup.GET("/random", h.RandomTask)
		tasksGroup.POST("/generate", h.GenerateTask)
		tasksGroup.POST("", h.AddTask)
	}
}

type createGameRequest struct {
	NumPlayers         int    `json:"numPlayers"`
	Mode               string `json:"mode"`
	EliminationEnabled bool   `json:"eliminationEnabled"`
	TaskDifficulty     string `json:"taskDifficulty"`
	UseGeneratedTasks  *bool  `json:"useGeneratedTasks"`
	UseAiTasks         *bool  `json:"useAiTasks"` // legacy client name
	TaskTimeLimit      *int   `json:"taskTimeLimit"`
}

type fingerRequest struct {
	FingerID int `json:"fingerId"`
}

type startRequest struct {
	Fingers []fingerRequest `json:"fingers"`
}

type selectRequest struct {
	FingerID *int `json:"fingerId"`
}

type outcomeRequest struct {
	Action string `json:"action"`
}

type addTaskRequest struct {
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

type gameResponse struct {
	*game.Session
	CurrentTask *tasks.BankTask `json:"currentTask,omitempty"`
}

// CreateGame godoc
// POST /api/games
func (h *Handler) CreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	st := game.Settings{
		NumPlayers:         req.NumPlayers,
		Mode:               game.Mode(req.Mode),
		EliminationEnabled: req.EliminationEnabled,
		TaskDifficulty:     game.Difficulty(req.TaskDifficulty),
		TaskTimeLimit:      req.TaskTimeLimit,
	}
	switch {
	case req.UseGeneratedTasks != nil:
		st.UseGeneratedTasks = *req.UseGeneratedTasks
	case req.UseAiTasks != nil:
		st.UseGeneratedTasks = *req.UseAiTasks
	}
	s, err := h.games.CreateSession(c.Request.Context(), st)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// GetGame godoc
// GET /api/games/:id
func (h *Handler) GetGame(c *gin.Context) {
	s, err := h.games.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gameResponse{Session: s}
	if s.CurrentTaskRef != nil && h.bank != nil {
		if t, err := h.bank.Get(c.Request.Context(), *s.CurrentTaskRef); err == nil {
			resp.CurrentTask = &t
		} else {
			log.Warn().Err(err).Str("id", s.ID).Str("task", *s.CurrentTaskRef).Msg("referenced task missing")
		}
	}
	c.JSON(http.StatusOK, resp)
}

// StartSelection godoc
// PUT /api/games/:id/start
func (h *Handler) StartSelection(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "fingers array is required")
		return
	}
	fingers := make([]int, 0, len(req.Fingers))
	for _, f := range req.Fingers {
		fingers = append(fingers, f.FingerID)
	}
	s, err := h.games.StartSelection(c.Request.Context(), c.Param("id"), fingers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// PerformSelection godoc
// POST /api/games/:id/select
func (h *Handler) PerformSelection(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.games.PerformSelection(c.Request.Context(), c.Param("id"), req.FingerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ResolveTaskOutcome godoc
// PUT /api/games/:id/players/:fingerId
func (h *Handler) ResolveTaskOutcome(c *gin.Context) {
	fingerID, ok := fingerParam(c)
	if !ok {
		return
	}
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action is required")
		return
	}
	action, ok := game.ParseAction(req.Action)
	if !ok {
		badRequest(c, "invalid action")
		return
	}
	s, err := h.games.ResolveTaskOutcome(c.Request.Context(), c.Param("id"), fingerID, action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// FingerLifted godoc
// POST /api/games/:id/players/:fingerId/lift
func (h *Handler) FingerLifted(c *gin.Context) {
	fingerID, ok := fingerParam(c)
	if !ok {
		return
	}
	s, err := h.games.FingerLifted(c.Request.Context(), c.Param("id"), fingerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// DeleteGame godoc
// DELETE /api/games/:id
func (h *Handler) DeleteGame(c *gin.Context) {
	if err := h.games.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RandomTask godoc
// GET /api/tasks/random?difficulty=easy
func (h *Handler) RandomTask(c *gin.Context) {
	d := game.Difficulty(c.Query("difficulty"))
	if !d.Valid() {
		d = game.DifficultyAny
	}
	t, err := h.bank.Random(c.Request.Context(), d)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// AddTask godoc
// POST /api/tasks
func (h *Handler) AddTask(c *gin.Context) {
	var req addTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "please provide text and difficulty")
		return
	}
	t, err := h.bank.Add(c.Request.Context(), req.Text, game.Difficulty(req.Difficulty), req.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GenerateTask godoc
// POST /api/tasks/generate?difficulty=medium
func (h *Handler) GenerateTask(c *gin.Context) {
	d := game.Difficulty(c.DefaultQuery("difficulty", string(game.DifficultyAny)))
	if !d.Valid() {
		badRequest(c, "unknown difficulty")
		return
	}
	if h.gen == nil {
		writeError(c, game.ErrTaskSourceUnavailable)
		return
	}
	text, err := h.gen.Generate(c.Request.Context(), d)
	if err != nil {
		log.Warn().Err(err).Str("difficulty", string(d)).Msg("task generation failed")
		writeError(c, game.ErrTaskSourceUnavailable)
		return
	}
	c.JSON(http.StatusOK, game.GeneratedTask(text, d))
}

func fingerParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("fingerId"))
	if err != nil {
		badRequest(c, "fingerId must be an integer")
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": msg})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := game.Kind(err)
	switch {
	case errors.Is(err, game.ErrNotFound), errors.Is(err, tasks.ErrTaskNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, tasks.ErrNoTasks):
		status, kind = http.StatusNotFound, "no_tasks"
	case errors.Is(err, game.ErrInvalidInput), errors.Is(err, tasks.ErrInvalidTask):
		status, kind = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrInvalidTarget),
		errors.Is(err, game.ErrNoActivePlayers),
		errors.Is(err, game.ErrEliminationDisabled),
		errors.Is(err, game.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, game.ErrTaskSourceUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": kind, "message": "server error"})
		return
	}
	c.JSON(status, gin.H{"error": kind, "message": err.Error()})
}
