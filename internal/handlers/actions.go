// internal/handlers/actions.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/jason-s-yu/sketchchain/internal/auth"
	"github.com/jason-s-yu/sketchchain/internal/game"
	"github.com/jason-s-yu/sketchchain/internal/models"
	"github.com/jason-s-yu/sketchchain/internal/settings"
	"github.com/jason-s-yu/sketchchain/internal/words"
)

var (
	errUnknownAction = errors.New("unknown action")
	errBadPayload    = errors.New("malformed action payload")
)

// dispatch applies one device command to g. The HTTP and websocket surfaces
// share it, so both accept the same action names and payload keys.
func (s *Server) dispatch(ctx context.Context, g *game.Game, a models.GameAction) error {
	switch a.ActionType {
	case "start":
		if word := a.String("word"); word != "" {
			return g.StartSession(word)
		}
		_, err := g.StartWithWordSource(ctx)
		return err
	case "advance":
		return g.Advance()
	case "transition":
		return g.Transition(game.Phase(a.String("phase")))
	case "guess":
		return g.SubmitGuess(a.String("text"))
	case "skip":
		return g.SkipTimer()
	case "pause":
		g.Pause()
		return nil
	case "resume":
		g.Resume()
		return nil
	case "players":
		n, ok := a.Int("count")
		if !ok {
			return fmt.Errorf("players needs a numeric count: %w", errBadPayload)
		}
		_, err := g.SetPlayerCount(n)
		return err
	case "difficulty":
		d, err := models.ParseDifficulty(a.String("difficulty"))
		if err != nil {
			return err
		}
		return g.SetDifficulty(d)
	case "settings":
		return s.applySettings(ctx, g, a.Payload)
	case "reset":
		return g.Reset()
	}
	return fmt.Errorf("%w: %q", errUnknownAction, a.ActionType)
}

// applySettings updates the device preferences and pushes the durations into
// the game. {"toggle": "soundEnabled"} flips a switch; any other key sets the
// field of the same name.
func (s *Server) applySettings(ctx context.Context, g *game.Game, payload map[string]interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("settings needs at least one key: %w", errBadPayload)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Keys applied before a failing one stay saved, so the game follows them either way.
	defer func() { g.UpdateSettings(s.Settings.Get()) }()

	for _, k := range keys {
		v := payload[k]
		if k == "toggle" {
			name, _ := v.(string)
			if _, err := s.Settings.Toggle(ctx, settings.Key(name)); err != nil {
				return fmt.Errorf("toggle %q: %w", name, err)
			}
			continue
		}
		if _, err := s.Settings.Set(ctx, settings.Key(k), v); err != nil {
			return fmt.Errorf("set %q: %w", k, err)
		}
	}
	return nil
}

// statusFor maps a command error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errNoSession), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrRoundInProgress),
		errors.Is(err, game.ErrNoSeed),
		errors.Is(err, game.ErrGuessRequired),
		errors.Is(err, game.ErrNotGuessing),
		errors.Is(err, game.ErrNotInLobby),
		errors.Is(err, game.ErrNotTimed):
		return http.StatusConflict
	case errors.Is(err, errUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNoWordSource), errors.Is(err, words.ErrEmptyPool):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}
