package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/AlemzhanJ/chooseApp/internal/game"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"
)

const eventTimeout = 10 * time.Second

type ConnCtx struct {
	GameID string
}

// Server pushes session snapshots to every connection watching a game and
// accepts finger lifts from the touch surface. Each game id is a room.
type Server struct {
	games *game.Manager
	io    *socketio.Server
}

func New(games *game.Manager) *Server {
	return &Server{games: games}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Debug().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "game:watch", srv.watch)
	io.OnEvent("/", "game:lift", srv.lift)

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Debug().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io server stopped")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return io
}

type watchRequest struct {
	GameID string `json:"gameId"`
}

type liftRequest struct {
	GameID   string `json:"gameId"`
	FingerID int    `json:"fingerId"`
}

// watch subscribes the connection to one game and sends its current state.
func (srv *Server) watch(s socketio.Conn, req watchRequest) map[string]any {
	sess, err := srv.games.GetSession(context.Background(), req.GameID)
	if err != nil {
		return srv.err(s, err)
	}
	if ctx, ok := s.Context().(*ConnCtx); ok && ctx.GameID != "" && ctx.GameID != req.GameID {
		s.Leave(ctx.GameID)
	}
	s.SetContext(&ConnCtx{GameID: req.GameID})
	s.Join(req.GameID)
	log.Info().Str("sid", s.ID()).Str("id", req.GameID).Msg("game:watch")
	s.Emit("game:state", sess)
	return map[string]any{"ok": true}
}

// lift reports a finger leaving the surface.
func (srv *Server) lift(s socketio.Conn, req liftRequest) map[string]any {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	sess, err := srv.games.FingerLifted(ctx, req.GameID, req.FingerID)
	if err != nil {
		return srv.err(s, err)
	}
	log.Info().Str("sid", s.ID()).Str("id", req.GameID).Int("fingerId", req.FingerID).Str("status", string(sess.Status)).Msg("game:lift")
	return map[string]any{"ok": true, "status": sess.Status}
}

func (srv *Server) SessionChanged(s *game.Session) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", s.ID, "game:state", s)
}

func (srv *Server) SessionDeleted(id string) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", id, "game:deleted", map[string]any{"id": id})
	srv.io.ClearRoom("/", id)
}

func (srv *Server) err(s socketio.Conn, err error) map[string]any {
	kind := game.Kind(err)
	s.Emit("error", map[string]any{"code": kind, "message": err.Error()})
	return map[string]any{"error": kind}
}
