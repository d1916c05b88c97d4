// internal/game/session.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/sketchchain/internal/chain"
	"github.com/jason-s-yu/sketchchain/internal/models"
	"github.com/jason-s-yu/sketchchain/internal/timer"
)

// RoundSettings are the durations the timer is initialised with.
type RoundSettings struct {
	DrawDurationSec  int `json:"drawTime"`
	GuessDurationSec int `json:"guessTime"`
}

// Session is a read-only snapshot of a round. Steps is a copy; mutating a
// Session never affects the game it came from.
type Session struct {
	GameID                uuid.UUID         `json:"gameId"`
	ID                    uuid.UUID         `json:"id"`
	Phase                 Phase             `json:"phase"`
	PlayerCount           int               `json:"playerCount"`
	Difficulty            models.Difficulty `json:"difficulty"`
	CurrentPlayerIndex    int               `json:"currentPlayerIndex"`
	OriginalWord          string            `json:"originalWord"`
	Steps                 []chain.Step      `json:"steps"`
	CurrentVisibleContent string            `json:"currentVisibleContent"`
	Settings              RoundSettings     `json:"settings"`
	Turn                  int               `json:"turn"`
}

// IsComplete reports whether every player has contributed.
func (s Session) IsComplete() bool {
	return len(s.Steps) >= s.PlayerCount+1
}

// View bundles a session with the timer and every derived value the UI shows.
// Version increases with every published view, so a client can drop a view
// that arrives after a newer one.
type View struct {
	Version       uint64            `json:"version"`
	Session       Session           `json:"session"`
	Timer         timer.State       `json:"timer"`
	Progress      float64           `json:"progress"`
	IsDrawingTurn bool              `json:"isDrawingTurn"`
	IsComplete    bool              `json:"isComplete"`
	Urgency       timer.UrgencyTier `json:"urgency"`
	FormattedTime string            `json:"formattedTime"`
	TimerProgress float64           `json:"timerProgress"`
	NextPhases    []Phase           `json:"nextPhases"`
}

// NewView derives a View from a session and timer snapshot.
func NewView(s Session, t timer.State) View {
	return View{
		Session:       s,
		Timer:         t,
		Progress:      chain.Progress(len(s.Steps), s.PlayerCount),
		IsDrawingTurn: chain.IsDrawingTurn(len(s.Steps)),
		IsComplete:    s.IsComplete(),
		Urgency:       timer.Urgency(t.SecondsRemaining),
		FormattedTime: timer.FormatTime(t.SecondsRemaining),
		TimerProgress: timer.Progress(t),
		NextPhases:    s.Phase.Next(),
	}
}
