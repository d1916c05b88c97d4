package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Chaotic ")
	require.NoError(t, err)
	assert.Equal(t, DifficultyChaotic, d)

	_, err = ParseDifficulty("impossible")
	assert.True(t, errors.Is(err, ErrUnknownDifficulty))
}

func TestGameActionPayloadAccessors(t *testing.T) {
	var a GameAction
	require.NoError(t, json.Unmarshal([]byte(`{"action_type":"players","payload":{"count":7,"text":"hi","on":true}}`), &a))

	n, ok := a.Int("count")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	assert.Equal(t, "hi", a.String("text"))
	b, ok := a.Bool("on")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = GameAction{}.Int("count")
	assert.False(t, ok)
}
