// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jason-s-yu/sketchchain/internal/chain"
	"github.com/jason-s-yu/sketchchain/internal/feedback"
	"github.com/jason-s-yu/sketchchain/internal/models"
	"github.com/jason-s-yu/sketchchain/internal/observe"
	"github.com/jason-s-yu/sketchchain/internal/settings"
	"github.com/jason-s-yu/sketchchain/internal/timer"
	"github.com/jason-s-yu/sketchchain/internal/words"
	"github.com/sirupsen/logrus"
)

// NoGuess is recorded when the guessing timer runs out before a guess is submitted.
const NoGuess = "(no guess)"

var (
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrEmptySeed         = errors.New("seed word is empty")
	ErrRoundInProgress   = errors.New("round already in progress")
	ErrNoSeed            = errors.New("no seed word; start a session first")
	ErrGuessRequired     = errors.New("a guess is required to leave the guessing phase")
	ErrNotGuessing       = errors.New("not in the guessing phase")
	ErrEmptyGuess        = errors.New("guess is empty")
	ErrNotInLobby        = errors.New("only allowed in the lobby")
	ErrNotTimed          = errors.New("no timed phase is active")
	ErrNoWordSource      = errors.New("no word source configured")
)

// OnRevealFunc receives the finished round when the reveal phase is entered.
type OnRevealFunc func(s Session)

// Config configures a new Game. Zero values fall back to defaults.
type Config struct {
	Players    int
	Difficulty models.Difficulty
	Settings   settings.Settings

	Words words.Source

	// Feedback sinks. Wrap them in feedback.Gate to honour the user's toggles.
	Audio       feedback.Audio
	Haptics     feedback.Haptics
	Celebration feedback.Celebration

	Actions  ActionLogger
	OnReveal OnRevealFunc
	Logger   *logrus.Entry

	// Cadence replaces the timer's one-second ticker.
	Cadence timer.CadenceFunc
}

// Game owns one round at a time and the timer that paces it.
//
// Mutations happen under mu and collect their side effects (timer commands,
// feedback, hooks). Those run after mu is released, serialized by applyMu so
// they take effect in mutation order. Snapshot and View never take mu.
type Game struct {
	ID uuid.UUID

	mu          sync.Mutex
	roundID     uuid.UUID
	phase       Phase
	chain       *chain.Chain
	difficulty  models.Difficulty
	durations   RoundSettings
	turnID      int // bumped on every phase entry; stale timer expiries compare against it
	actionIndex int

	applyMu sync.Mutex
	session atomic.Pointer[Session]
	version atomic.Uint64
	views   observe.Broadcaster[View]

	timer       *timer.Timer
	words       words.Source
	audio       feedback.Audio
	celebration feedback.Celebration
	actions     ActionLogger
	onReveal    OnRevealFunc
	log         *logrus.Entry
}

// New builds a game sitting in the lobby.
func New(cfg Config) *Game {
	id := uuid.New()

	players := cfg.Players
	if players == 0 {
		players = chain.DefaultPlayers
	}
	difficulty := cfg.Difficulty
	if !difficulty.Valid() {
		difficulty = models.DefaultDifficulty
	}
	st := cfg.Settings
	if st == (settings.Settings{}) {
		st = settings.Defaults()
	}
	st = st.Clamp()

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("game", id)

	var haptics feedback.Haptics = feedback.Nop{}
	if cfg.Haptics != nil {
		haptics = cfg.Haptics
	}
	timerOpts := []timer.Option{timer.WithHaptics(haptics), timer.WithLogger(log)}
	if cfg.Cadence != nil {
		timerOpts = append(timerOpts, timer.WithCadence(cfg.Cadence))
	}

	g := &Game{
		ID:          id,
		roundID:     uuid.New(),
		phase:       PhaseLobby,
		chain:       chain.New(players),
		difficulty:  difficulty,
		durations:   RoundSettings{DrawDurationSec: st.DrawDurationSec, GuessDurationSec: st.GuessDurationSec},
		timer:       timer.New(timerOpts...),
		words:       cfg.Words,
		audio:       cfg.Audio,
		celebration: cfg.Celebration,
		actions:     cfg.Actions,
		onReveal:    cfg.OnReveal,
		log:         log,
	}
	if g.audio == nil {
		g.audio = feedback.Nop{}
	}
	if g.celebration == nil {
		g.celebration = feedback.Nop{}
	}

	g.mu.Lock()
	g.commitLocked()
	g.mu.Unlock()

	// Timer changes (every tick included) reach view subscribers.
	g.timer.Subscribe(func(t timer.State) {
		g.publish(t)
	})
	return g
}

// Snapshot returns the latest committed session.
func (g *Game) Snapshot() Session {
	return *g.session.Load()
}

// View returns the latest session with the live timer and derived values.
func (g *Game) View() View {
	v := NewView(g.Snapshot(), g.timer.Snapshot())
	v.Version = g.version.Load()
	return v
}

// Subscribe calls fn with the current view and then after every change.
// fn must not call mutating Game methods synchronously.
func (g *Game) Subscribe(fn func(View)) (cancel func()) {
	return g.views.Subscribe(g.View(), fn)
}

// Timer exposes the round's countdown.
func (g *Game) Timer() *timer.Timer {
	return g.timer
}

// Transition moves directly to target when the phase table allows it. An
// illegal target leaves the game untouched, logs a warning and returns an
// error wrapping ErrInvalidTransition; callers may treat it as a diagnostic.
// Leaving a pass phase hands the device to the next player, and moving from
// summary to lobby resets the round.
func (g *Game) Transition(target Phase) error {
	return g.mutate(func(fx *effects) error {
		if err := g.checkTransitionLocked(target); err != nil {
			return err
		}
		if g.phase == PhaseSummary {
			g.resetLocked(fx)
			return nil
		}
		if g.phase.IsPass() {
			g.chain.AdvanceTurn()
		}
		g.enterLocked(target, fx)
		return nil
	})
}

// StartSession seeds a new chain with word and moves to the countdown.
func (g *Game) StartSession(word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return ErrEmptySeed
	}
	return g.mutate(func(fx *effects) error {
		if g.phase != PhaseLobby && g.phase != PhaseCountdown {
			return fmt.Errorf("start from %s: %w", g.phase, ErrRoundInProgress)
		}
		g.chain.Start(word)
		g.logAction("session_start", map[string]interface{}{"players": g.chain.Players(), "difficulty": g.difficulty})
		g.enterLocked(PhaseCountdown, fx)
		return nil
	})
}

// StartWithWordSource picks a seed word for the current difficulty and starts
// a session with it.
func (g *Game) StartWithWordSource(ctx context.Context) (string, error) {
	if g.words == nil {
		return "", ErrNoWordSource
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	word, err := g.words.PickWord(g.Snapshot().Difficulty)
	if err != nil {
		return "", fmt.Errorf("failed to pick a seed word: %w", err)
	}
	return word, g.StartSession(word)
}

// Advance completes the current phase and moves on according to the turn
// policy. Leaving drawing records the drawing, guessing needs SubmitGuess, and
// leaving pass-after-guess picks the next phase from the chain.
func (g *Game) Advance() error {
	return g.mutate(g.advanceLocked)
}

func (g *Game) advanceLocked(fx *effects) error {
	switch g.phase {
	case PhaseLobby:
		if g.chain.Len() == 0 {
			return ErrNoSeed
		}
		g.enterLocked(PhaseCountdown, fx)
	case PhaseCountdown:
		g.enterLocked(PhaseWordReveal, fx)
	case PhaseWordReveal:
		g.enterLocked(PhaseDrawing, fx)
	case PhaseDrawing:
		return g.finishDrawingLocked(fx)
	case PhasePassAfterDraw:
		g.chain.AdvanceTurn()
		g.enterLocked(PhaseGuessing, fx)
	case PhaseGuessing:
		return ErrGuessRequired
	case PhasePassAfterGuess:
		g.chain.AdvanceTurn()
		g.enterLocked(g.nextAfterGuessPassLocked(), fx)
	case PhaseReveal:
		g.enterLocked(PhaseSummary, fx)
	case PhaseSummary:
		g.resetLocked(fx)
	}
	return nil
}

// SubmitGuess records the current player's guess and leaves the guessing phase.
func (g *Game) SubmitGuess(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyGuess
	}
	return g.mutate(func(fx *effects) error {
		if g.phase != PhaseGuessing {
			return fmt.Errorf("guess during %s: %w", g.phase, ErrNotGuessing)
		}
		fx.sounds = append(fx.sounds, feedback.SoundSuccess)
		return g.finishGuessLocked(text, fx)
	})
}

// SkipTimer ends the running countdown now, as if it had expired.
func (g *Game) SkipTimer() error {
	if !g.Snapshot().Phase.Timed() {
		return ErrNotTimed
	}
	g.timer.Complete()
	return nil
}

// Pause freezes the countdown. Only a running countdown is recorded.
func (g *Game) Pause() {
	if !g.timer.Pause() {
		return
	}
	g.mu.Lock()
	g.logAction("timer_pause", nil)
	g.mu.Unlock()
}

// Resume continues a paused countdown.
func (g *Game) Resume() {
	if !g.timer.Resume() {
		return
	}
	g.mu.Lock()
	g.logAction("timer_resume", nil)
	g.mu.Unlock()
}

// SetPlayerCount clamps n into [4,12] and returns the applied value.
func (g *Game) SetPlayerCount(n int) (int, error) {
	applied := 0
	err := g.mutate(func(fx *effects) error {
		if g.phase != PhaseLobby {
			return ErrNotInLobby
		}
		applied = g.chain.SetPlayerCount(n)
		g.logAction("set_players", map[string]interface{}{"requested": n, "applied": applied})
		return nil
	})
	return applied, err
}

// SetDifficulty changes the word pool used by the next StartWithWordSource.
func (g *Game) SetDifficulty(d models.Difficulty) error {
	if !d.Valid() {
		return fmt.Errorf("%q: %w", d, models.ErrUnknownDifficulty)
	}
	return g.mutate(func(fx *effects) error {
		g.difficulty = d
		g.logAction("set_difficulty", map[string]interface{}{"difficulty": d})
		return nil
	})
}

// UpdateSettings takes the (clamped) durations from s. They apply the next
// time a timed phase starts.
func (g *Game) UpdateSettings(s settings.Settings) RoundSettings {
	s = s.Clamp()
	var out RoundSettings
	_ = g.mutate(func(fx *effects) error {
		g.durations = RoundSettings{DrawDurationSec: s.DrawDurationSec, GuessDurationSec: s.GuessDurationSec}
		out = g.durations
		g.logAction("update_settings", map[string]interface{}{"drawTime": out.DrawDurationSec, "guessTime": out.GuessDurationSec})
		return nil
	})
	return out
}

// Reset returns from summary to the lobby. It is the summary → lobby transition.
func (g *Game) Reset() error {
	return g.Transition(PhaseLobby)
}

// expire handles the timer running out for the phase entered at turn.
func (g *Game) expire(turn int) {
	_ = g.mutate(func(fx *effects) error {
		if turn != g.turnID {
			g.log.Debugf("ignoring stale timer expiry for turn %d (current %d)", turn, g.turnID)
			return nil
		}
		if g.chain.Len() == 0 {
			g.log.Warnf("timer expired during %s with no seed word; nothing recorded", g.phase)
			return ErrNoSeed
		}
		g.logAction("timer_expired", map[string]interface{}{"phase": g.phase})
		fx.sounds = append(fx.sounds, feedback.SoundTimesUp)
		switch g.phase {
		case PhaseDrawing:
			return g.finishDrawingLocked(fx)
		case PhaseGuessing:
			return g.finishGuessLocked(NoGuess, fx)
		}
		return nil
	})
}

// finishDrawingLocked and finishGuessLocked refuse to record anything until a
// seed word occupies steps[0].
func (g *Game) finishDrawingLocked(fx *effects) error {
	if g.chain.Len() == 0 {
		return ErrNoSeed
	}
	step := g.chain.AppendDrawing()
	g.logAction("drawing_recorded", map[string]interface{}{"stepId": step.ID})
	g.enterLocked(PhasePassAfterDraw, fx)
	return nil
}

func (g *Game) finishGuessLocked(text string, fx *effects) error {
	if g.chain.Len() == 0 {
		return ErrNoSeed
	}
	step := g.chain.AppendGuess(text)
	g.logAction("guess_recorded", map[string]interface{}{"stepId": step.ID, "text": text})
	if g.chain.IsComplete() {
		g.enterLocked(PhaseReveal, fx)
		return nil
	}
	g.enterLocked(PhasePassAfterGuess, fx)
	return nil
}

// nextAfterGuessPassLocked chooses what follows pass-after-guess. Step-count
// parity is checked against the kind of the last step; if they disagree the
// last step's kind wins and the repair is logged.
func (g *Game) nextAfterGuessPassLocked() Phase {
	if g.chain.IsComplete() {
		return PhaseReveal
	}
	reveal, repaired := g.chain.RevealTextNext()
	next := PhaseDrawing
	if reveal {
		next = PhaseWordReveal
	}
	if repaired {
		err := g.chain.Verify()
		g.log.Warnf("chain parity out of sync at length %d, continuing to %s: %v", g.chain.Len(), next, err)
		g.logAction("consistency_repaired", map[string]interface{}{"length": g.chain.Len(), "next": next})
	}
	return next
}

func (g *Game) checkTransitionLocked(target Phase) error {
	if g.phase.CanTransitionTo(target) {
		return nil
	}
	g.log.Warnf("invalid transition: %s → %s", g.phase, target)
	return fmt.Errorf("%s → %s: %w", g.phase, target, ErrInvalidTransition)
}

// enterLocked switches to phase p and queues its entry effects. Assumes lock is held.
func (g *Game) enterLocked(p Phase, fx *effects) {
	from := g.phase
	g.phase = p
	g.turnID++
	g.logAction("phase_"+string(p), map[string]interface{}{"from": from})

	switch p {
	case PhaseLobby:
		fx.stopTimer()
	case PhaseCountdown:
		fx.stopTimer()
		fx.sounds = append(fx.sounds, feedback.SoundCountdown)
	case PhaseWordReveal:
		fx.sounds = append(fx.sounds, feedback.SoundWhoosh)
	case PhaseDrawing:
		fx.startTimer(g.durations.DrawDurationSec, g.turnID)
	case PhaseGuessing:
		fx.startTimer(g.durations.GuessDurationSec, g.turnID)
	case PhasePassAfterDraw, PhasePassAfterGuess:
		fx.stopTimer()
		fx.sounds = append(fx.sounds, feedback.SoundPop)
	case PhaseReveal:
		fx.stopTimer()
		fx.sounds = append(fx.sounds, feedback.SoundReveal)
		fx.celebrations = append(fx.celebrations, feedback.EffectFireworks)
		fx.reveal = true
	case PhaseSummary:
		fx.sounds = append(fx.sounds, feedback.SoundCelebrate)
		fx.celebrations = append(fx.celebrations, feedback.EffectCannons)
	}
}

// resetLocked discards the round but keeps difficulty, durations and player count.
func (g *Game) resetLocked(fx *effects) {
	g.logAction("session_reset", nil)
	g.roundID = uuid.New()
	g.chain = chain.New(g.chain.Players())
	g.enterLocked(PhaseLobby, fx)
}

// commitLocked publishes the current state as the latest snapshot. Assumes lock is held.
func (g *Game) commitLocked() Session {
	s := Session{
		GameID:                g.ID,
		ID:                    g.roundID,
		Phase:                 g.phase,
		PlayerCount:           g.chain.Players(),
		Difficulty:            g.difficulty,
		CurrentPlayerIndex:    g.chain.CurrentPlayer(),
		OriginalWord:          g.chain.SeedWord(),
		Steps:                 g.chain.Steps(),
		CurrentVisibleContent: g.chain.VisibleContent(),
		Settings:              g.durations,
		Turn:                  g.turnID,
	}
	g.session.Store(&s)
	return s
}

// mutate runs fn under the game lock and, unless it fails, commits the new
// snapshot and applies the queued effects in order.
func (g *Game) mutate(fn func(fx *effects) error) error {
	fx := &effects{}
	g.mu.Lock()
	if err := fn(fx); err != nil {
		g.mu.Unlock()
		return err
	}
	snap := g.commitLocked()
	g.applyMu.Lock()
	g.mu.Unlock()

	defer g.applyMu.Unlock()
	g.apply(fx, snap)
	return nil
}

func (g *Game) apply(fx *effects, snap Session) {
	switch fx.timer {
	case timerStop:
		g.timer.Stop()
	case timerStart:
		turn := fx.turn
		g.timer.Init(fx.duration)
		g.timer.Start(func() { g.expire(turn) })
	}
	for _, s := range fx.sounds {
		g.audio.Play(s)
	}
	for _, e := range fx.celebrations {
		g.celebration.Celebrate(e, nil)
	}
	if fx.reveal && g.onReveal != nil {
		g.onReveal(snap)
	}
	g.publish(g.timer.Snapshot())
}

func (g *Game) publish(t timer.State) {
	v := NewView(g.Snapshot(), t)
	v.Version = g.version.Add(1)
	g.views.Publish(v)
}

type timerOp int

const (
	timerNone timerOp = iota
	timerStop
	timerStart
)

// effects are collected under the game lock and applied after it is released.
type effects struct {
	timer        timerOp
	duration     int
	turn         int
	sounds       []feedback.Sound
	celebrations []feedback.Effect
	reveal       bool
}

func (fx *effects) stopTimer() {
	fx.timer = timerStop
}

func (fx *effects) startTimer(durationSec, turn int) {
	fx.timer = timerStart
	fx.duration = durationSec
	fx.turn = turn
}
