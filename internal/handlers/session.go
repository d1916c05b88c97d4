// internal/handlers/session.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/sketchchain/internal/auth"
	"github.com/jason-s-yu/sketchchain/internal/database"
	"github.com/jason-s-yu/sketchchain/internal/models"
)

// createSessionRequest is the optional body of POST /session.
type createSessionRequest struct {
	Players    int    `json:"players"`
	Difficulty string `json:"difficulty"`
}

// CreateSessionHandler starts a game for this device and hands back a device
// token cookie bound to it. A device that already holds a live game gets it
// replaced.
func (s *Server) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	difficulty := models.DefaultDifficulty
	if req.Difficulty != "" {
		d, err := models.ParseDifficulty(req.Difficulty)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		difficulty = d
	}

	if old, err := s.gameFromRequest(r); err == nil {
		s.RemoveGame(old.ID)
	}

	g := s.NewGame(req.Players, difficulty)
	token, err := auth.CreateDeviceToken(g.ID)
	if err != nil {
		s.RemoveGame(g.ID)
		s.logger.Errorf("failed to create device token: %v", err)
		http.Error(w, "failed to create device token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, g.View())
}

// GetSessionHandler returns the current view of the device's game.
func (s *Server) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	g, err := s.gameFromRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, g.View())
}

// DeleteSessionHandler ends the device's game and clears its cookie.
func (s *Server) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	g, err := s.gameFromRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.RemoveGame(g.ID)
	http.SetCookie(w, &http.Cookie{
		Name:   auth.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// SessionActionHandler applies POST /session/{action}. The JSON body, if any,
// is the action payload.
func (s *Server) SessionActionHandler(w http.ResponseWriter, r *http.Request) {
	g, err := s.gameFromRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	action := models.GameAction{ActionType: r.PathValue("action")}
	if err := json.NewDecoder(r.Body).Decode(&action.Payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.dispatch(r.Context(), g, action); err != nil {
		s.logger.Debugf("action %q on game %s rejected: %v", action.ActionType, g.ID, err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, g.View())
}

// GetSettingsHandler returns the device preferences.
func (s *Server) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Settings.Get())
}

// GetChainHandler returns an archived chain by round ID.
func (s *Server) GetChainHandler(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "chain archive is not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid chain id", http.StatusBadRequest)
		return
	}

	a, err := database.GetChain(r.Context(), s.DB, id)
	if errors.Is(err, database.ErrChainNotFound) {
		http.Error(w, "chain not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorf("failed to load chain %s: %v", id, err)
		http.Error(w, "failed to load chain", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
