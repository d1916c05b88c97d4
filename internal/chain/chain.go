// internal/chain/chain.go
package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MinPlayers     = 4
	MaxPlayers     = 12
	DefaultPlayers = 6
)

// ErrParityMismatch means a recorded step kind disagrees with the kind its
// position in the chain predicts.
var ErrParityMismatch = errors.New("chain step kind does not match its position")

// Kind tags what a step contributes.
type Kind string

const (
	KindWord    Kind = "word"
	KindDrawing Kind = "drawing"
	KindGuess   Kind = "guess"
)

// Step is a single contribution. Steps are never mutated once appended.
type Step struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	PlayerIndex int       `json:"playerIndex"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Chain is the append-only log of a round. It is not safe for concurrent use;
// the owning game serializes access.
type Chain struct {
	players int
	current int
	seed    string
	visible string
	steps   []Step
	now     func() time.Time
}

// New returns an empty chain for playerCount players (clamped to [4,12]).
func New(playerCount int) *Chain {
	return &Chain{players: ClampPlayers(playerCount), now: time.Now}
}

// ClampPlayers pins n into [MinPlayers, MaxPlayers].
func ClampPlayers(n int) int {
	if n < MinPlayers {
		return MinPlayers
	}
	if n > MaxPlayers {
		return MaxPlayers
	}
	return n
}

// Start clears the chain and records seed as player 0's word.
func (c *Chain) Start(seed string) {
	c.steps = c.steps[:0:0]
	c.current = 0
	c.seed = seed
	c.visible = seed
	c.append(KindWord, seed)
}

// AppendDrawing records the current player's drawing. The drawing itself lives
// outside the engine, so the step only carries a label and the visible content
// stays on the text the drawer worked from.
func (c *Chain) AppendDrawing() Step {
	return c.append(KindDrawing, fmt.Sprintf("Player %d's drawing", c.current+1))
}

// AppendGuess records the current player's guess and shows it to the next player.
func (c *Chain) AppendGuess(text string) Step {
	s := c.append(KindGuess, text)
	c.visible = text
	return s
}

func (c *Chain) append(kind Kind, content string) Step {
	s := Step{
		ID:          uuid.New(),
		Kind:        kind,
		PlayerIndex: c.current,
		Content:     content,
		CreatedAt:   c.now(),
	}
	c.steps = append(c.steps, s)
	return s
}

// AdvanceTurn hands the device to the next player, wrapping around.
func (c *Chain) AdvanceTurn() {
	c.current = (c.current + 1) % c.players
}

// IsComplete reports whether the seed plus one contribution per player exist.
func (c *Chain) IsComplete() bool {
	return len(c.steps) >= c.players+1
}

// SetPlayerCount clamps n into range and keeps the current index valid.
func (c *Chain) SetPlayerCount(n int) int {
	c.players = ClampPlayers(n)
	if c.current >= c.players {
		c.current = 0
	}
	return c.players
}

// Steps returns a copy of the recorded steps in order.
func (c *Chain) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Last returns the most recent step, or false when the chain is empty.
func (c *Chain) Last() (Step, bool) {
	if len(c.steps) == 0 {
		return Step{}, false
	}
	return c.steps[len(c.steps)-1], true
}

func (c *Chain) Len() int { return len(c.steps) }

func (c *Chain) Players() int { return c.players }

func (c *Chain) CurrentPlayer() int { return c.current }

func (c *Chain) SeedWord() string { return c.seed }

func (c *Chain) VisibleContent() string { return c.visible }

// ExpectedKind is the kind a step at position i should carry:
// word at 0, drawings at odd positions, guesses at even positions after that.
func ExpectedKind(i int) Kind {
	switch {
	case i == 0:
		return KindWord
	case i%2 == 1:
		return KindDrawing
	default:
		return KindGuess
	}
}

// Verify checks every recorded step against ExpectedKind and returns the first
// disagreement wrapped in ErrParityMismatch.
func (c *Chain) Verify() error {
	for i, s := range c.steps {
		if want := ExpectedKind(i); s.Kind != want {
			return fmt.Errorf("step %d is %s, expected %s: %w", i, s.Kind, want, ErrParityMismatch)
		}
	}
	return nil
}

// RevealTextNext decides whether the next player should be shown the latest
// text (word or guess) before drawing, or go straight to drawing. Step-count
// parity predicts text at odd lengths; the literal kind of the last step wins
// when the two disagree, and repaired reports that they did.
func (c *Chain) RevealTextNext() (reveal, repaired bool) {
	byParity := len(c.steps)%2 == 1
	last, ok := c.Last()
	if !ok {
		return byParity, false
	}
	literal := last.Kind != KindDrawing
	return literal, literal != byParity
}

// Restore rebuilds a chain from previously recorded steps, such as an archived
// round. The seed and visible content are derived from the steps themselves.
func Restore(playerCount int, steps []Step, current int) *Chain {
	c := New(playerCount)
	c.steps = append([]Step(nil), steps...)
	if current >= 0 && current < c.players {
		c.current = current
	}
	for _, s := range c.steps {
		switch s.Kind {
		case KindWord:
			if c.seed == "" {
				c.seed = s.Content
			}
			c.visible = s.Content
		case KindGuess:
			c.visible = s.Content
		}
	}
	return c
}
