// internal/game/phase.go
package game

// Phase is the current screen of a round.
type Phase string

const (
	PhaseLobby          Phase = "lobby"
	PhaseCountdown      Phase = "countdown"
	PhaseWordReveal     Phase = "word-reveal"
	PhaseDrawing        Phase = "drawing"
	PhasePassAfterDraw  Phase = "pass-after-draw"
	PhaseGuessing       Phase = "guessing"
	PhasePassAfterGuess Phase = "pass-after-guess"
	PhaseReveal         Phase = "reveal"
	PhaseSummary        Phase = "summary"
)

// Phases lists every phase in play order.
var Phases = []Phase{
	PhaseLobby,
	PhaseCountdown,
	PhaseWordReveal,
	PhaseDrawing,
	PhasePassAfterDraw,
	PhaseGuessing,
	PhasePassAfterGuess,
	PhaseReveal,
	PhaseSummary,
}

// transitions is the only definition of which phase may follow which.
var transitions = map[Phase][]Phase{
	PhaseLobby:          {PhaseCountdown},
	PhaseCountdown:      {PhaseWordReveal},
	PhaseWordReveal:     {PhaseDrawing},
	PhaseDrawing:        {PhasePassAfterDraw},
	PhasePassAfterDraw:  {PhaseGuessing},
	PhaseGuessing:       {PhasePassAfterGuess, PhaseReveal},
	PhasePassAfterGuess: {PhaseWordReveal, PhaseDrawing, PhaseReveal},
	PhaseReveal:         {PhaseSummary},
	PhaseSummary:        {PhaseLobby},
}

// CanTransitionTo reports whether target may directly follow p.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// Next returns the phases reachable from p in one step.
func (p Phase) Next() []Phase {
	return append([]Phase(nil), transitions[p]...)
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

// Timed reports whether the countdown runs during p.
func (p Phase) Timed() bool {
	return p == PhaseDrawing || p == PhaseGuessing
}

// IsPass reports whether p is a hand-the-device-over screen.
func (p Phase) IsPass() bool {
	return p == PhasePassAfterDraw || p == PhasePassAfterGuess
}
