// internal/handlers/server.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/sketchchain/internal/auth"
	"github.com/jason-s-yu/sketchchain/internal/database"
	"github.com/jason-s-yu/sketchchain/internal/feedback"
	"github.com/jason-s-yu/sketchchain/internal/game"
	"github.com/jason-s-yu/sketchchain/internal/middleware"
	"github.com/jason-s-yu/sketchchain/internal/models"
	"github.com/jason-s-yu/sketchchain/internal/settings"
	"github.com/jason-s-yu/sketchchain/internal/timer"
	"github.com/jason-s-yu/sketchchain/internal/words"
	"github.com/sirupsen/logrus"
)

var errNoSession = errors.New("no session for this device")

// Server hosts the games of this process and the per-game feedback hubs the
// websocket stream forwards to the browser.
type Server struct {
	GameStore *game.Store
	Settings  *settings.Manager

	// Optional collaborators.
	Words   words.Source
	Actions game.ActionLogger
	DB      *pgxpool.Pool
	Cadence timer.CadenceFunc

	logger *logrus.Logger

	mu   sync.Mutex
	hubs map[uuid.UUID]*feedback.Hub
}

// NewServer builds a server around an empty game store.
func NewServer(logger *logrus.Logger, mgr *settings.Manager) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if mgr == nil {
		mgr = settings.NewManager(context.Background(), settings.NewMemoryStore(), logrus.NewEntry(logger))
	}
	return &Server{
		GameStore: game.NewStore(),
		Settings:  mgr,
		logger:    logger,
		hubs:      make(map[uuid.UUID]*feedback.Hub),
	}
}

// Routes returns the server's mux wrapped in the request logger.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", s.CreateSessionHandler)
	mux.HandleFunc("GET /session", s.GetSessionHandler)
	mux.HandleFunc("DELETE /session", s.DeleteSessionHandler)
	mux.HandleFunc("POST /session/{action}", s.SessionActionHandler)
	mux.HandleFunc("GET /session/ws", s.SessionWSHandler)
	mux.HandleFunc("GET /settings", s.GetSettingsHandler)
	mux.HandleFunc("GET /chains/{id}", s.GetChainHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"games":  s.GameStore.Len(),
		})
	})

	return middleware.LogMiddleware(s.logger)(mux)
}

// NewGame creates a game wired to a fresh feedback hub and registers both.
func (s *Server) NewGame(players int, difficulty models.Difficulty) *game.Game {
	hub := feedback.NewHub()
	gate := feedback.NewGate(hub, s.Settings.Toggles, logrus.NewEntry(s.logger))

	g := s.GameStore.Create(game.Config{
		Players:     players,
		Difficulty:  difficulty,
		Settings:    s.Settings.Get(),
		Words:       s.Words,
		Audio:       gate,
		Haptics:     gate,
		Celebration: gate,
		Actions:     s.Actions,
		OnReveal:    s.archive,
		Logger:      logrus.NewEntry(s.logger),
		Cadence:     s.Cadence,
	})

	s.mu.Lock()
	s.hubs[g.ID] = hub
	s.mu.Unlock()

	s.logger.Infof("Created game %s (%d players, %s)", g.ID, g.Snapshot().PlayerCount, g.Snapshot().Difficulty)
	return g
}

// RemoveGame stops and forgets a game.
func (s *Server) RemoveGame(id uuid.UUID) {
	s.GameStore.Delete(id)
	s.mu.Lock()
	delete(s.hubs, id)
	s.mu.Unlock()
}

// Hub returns the feedback hub of a game.
func (s *Server) Hub(id uuid.UUID) (*feedback.Hub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hubs[id]
	return h, ok
}

// gameFromRequest resolves the device token cookie to a live game.
func (s *Server) gameFromRequest(r *http.Request) (*game.Game, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), auth.CookieName)
	if token == "" {
		return nil, errNoSession
	}
	id, err := auth.AuthenticateDeviceToken(token)
	if err != nil {
		return nil, err
	}
	g, ok := s.GameStore.Get(id)
	if !ok {
		return nil, errNoSession
	}
	return g, nil
}

// archive persists a revealed chain. The write happens off the game's apply
// path and failures are only logged.
func (s *Server) archive(sess game.Session) {
	if s.DB == nil {
		return
	}
	a := database.Archive{
		SessionID:    sess.ID,
		GameID:       sess.GameID,
		PlayerCount:  sess.PlayerCount,
		Difficulty:   sess.Difficulty,
		OriginalWord: sess.OriginalWord,
		Steps:        sess.Steps,
		CompletedAt:  time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.SaveChain(ctx, s.DB, a); err != nil {
			s.logger.Warnf("failed to archive chain for session %s: %v", a.SessionID, err)
			return
		}
		s.logger.Debugf("archived chain for session %s (%d steps)", a.SessionID, len(a.Steps))
	}()
}
