// internal/chain/chain_test.go
package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSeedsWordStep(t *testing.T) {
	c := New(6)
	c.AdvanceTurn()
	c.Start("cat")

	steps := c.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, KindWord, steps[0].Kind)
	assert.Equal(t, "cat", steps[0].Content)
	assert.Equal(t, 0, steps[0].PlayerIndex)
	assert.Equal(t, "cat", c.VisibleContent())
	assert.Equal(t, "cat", c.SeedWord())
	assert.Equal(t, 0, c.CurrentPlayer())
}

func TestStartClearsPreviousRound(t *testing.T) {
	c := New(4)
	c.Start("cat")
	c.AppendDrawing()
	old := c.Steps()

	c.Start("dog")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "cat", old[0].Content, "earlier snapshots are unaffected")
}

func TestAppendDrawingKeepsVisibleContent(t *testing.T) {
	c := New(4)
	c.Start("cat")
	c.AdvanceTurn()

	s := c.AppendDrawing()
	assert.Equal(t, KindDrawing, s.Kind)
	assert.Equal(t, 1, s.PlayerIndex)
	assert.Equal(t, "Player 2's drawing", s.Content)
	assert.Equal(t, "cat", c.VisibleContent())
}

func TestAppendGuessUpdatesVisibleContent(t *testing.T) {
	c := New(4)
	c.Start("cat")
	c.AppendDrawing()
	c.AdvanceTurn()

	s := c.AppendGuess("kitten")
	assert.Equal(t, KindGuess, s.Kind)
	assert.Equal(t, "kitten", c.VisibleContent())
	assert.Equal(t, "cat", c.SeedWord())
}

func TestAdvanceTurnWraps(t *testing.T) {
	c := New(4)
	for i := 0; i < 5; i++ {
		c.AdvanceTurn()
	}
	assert.Equal(t, 1, c.CurrentPlayer())
}

func TestCompletionAtExactlyPlayersPlusOne(t *testing.T) {
	for n := MinPlayers; n <= MaxPlayers; n++ {
		c := New(n)
		c.Start("seed")
		for c.Len() < n+1 {
			assert.False(t, c.IsComplete(), "players=%d len=%d", n, c.Len())
			if c.Len()%2 == 1 {
				c.AppendDrawing()
			} else {
				c.AppendGuess("guess")
			}
			c.AdvanceTurn()
		}
		assert.True(t, c.IsComplete(), "players=%d", n)
		assert.NoError(t, c.Verify())
	}
}

func TestSetPlayerCountClamps(t *testing.T) {
	c := New(6)
	assert.Equal(t, 4, c.SetPlayerCount(2))
	assert.Equal(t, 12, c.SetPlayerCount(20))
	assert.Equal(t, 7, c.SetPlayerCount(7))
	assert.Equal(t, 4, New(-1).Players())
}

func TestSetPlayerCountKeepsIndexInRange(t *testing.T) {
	c := New(8)
	for i := 0; i < 6; i++ {
		c.AdvanceTurn()
	}
	c.SetPlayerCount(4)
	assert.Less(t, c.CurrentPlayer(), 4)
}

func TestVerifyDetectsParityMismatch(t *testing.T) {
	c := Restore(4, []Step{
		{Kind: KindWord, Content: "cat"},
		{Kind: KindGuess, Content: "dog"},
	}, 1)

	err := c.Verify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParityMismatch))
}

func TestRevealTextNext(t *testing.T) {
	c := New(4)
	c.Start("cat")
	c.AppendDrawing()
	c.AppendGuess("kitten")

	reveal, repaired := c.RevealTextNext()
	assert.True(t, reveal)
	assert.False(t, repaired)

	broken := Restore(4, []Step{
		{Kind: KindWord, Content: "cat"},
		{Kind: KindDrawing},
		{Kind: KindDrawing},
	}, 2)
	reveal, repaired = broken.RevealTextNext()
	assert.False(t, reveal)
	assert.True(t, repaired)
}

func TestRestoreDerivesSeedAndVisible(t *testing.T) {
	c := Restore(5, []Step{
		{Kind: KindWord, Content: "cat"},
		{Kind: KindDrawing, Content: "Player 1's drawing"},
		{Kind: KindGuess, Content: "lion"},
	}, 9)

	assert.Equal(t, "cat", c.SeedWord())
	assert.Equal(t, "lion", c.VisibleContent())
	assert.Equal(t, 0, c.CurrentPlayer())
	assert.Equal(t, 3, c.Len())
}

func TestViews(t *testing.T) {
	assert.Equal(t, 0.2, Progress(1, 4))
	assert.Equal(t, 1.0, Progress(9, 4))
	assert.True(t, IsDrawingTurn(1))
	assert.False(t, IsDrawingTurn(2))
	assert.Equal(t, KindWord, ExpectedKind(0))
	assert.Equal(t, KindDrawing, ExpectedKind(3))
	assert.Equal(t, KindGuess, ExpectedKind(4))
}
