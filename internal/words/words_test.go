// internal/words/words_test.go
package words

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jason-s-yu/sketchchain/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPicker() *Picker {
	return NewPicker(Embedded(), rand.New(rand.NewSource(42)))
}

func TestEmbeddedPoolsCoverEveryDifficulty(t *testing.T) {
	pools := Embedded()
	for _, d := range models.Difficulties {
		assert.NotEmpty(t, pools[d], "difficulty %s", d)
	}
}

func TestPickWordIsFromPool(t *testing.T) {
	p := testPicker()
	w, err := p.PickWord(models.DifficultyEasy)
	require.NoError(t, err)

	found := false
	for _, e := range Embedded()[models.DifficultyEasy] {
		if e.Word == w {
			found = true
		}
	}
	assert.True(t, found, "%q not in easy pool", w)
}

func TestPickWordsUniqueThenRepeats(t *testing.T) {
	p := testPicker()
	n := p.Count(models.DifficultyMedium)

	got, err := p.PickWords(models.DifficultyMedium, n)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, w := range got {
		assert.False(t, seen[w], "duplicate %q", w)
		seen[w] = true
	}

	got, err = p.PickWords(models.DifficultyMedium, n+3)
	require.NoError(t, err)
	assert.Len(t, got, n+3)
}

func TestPickByCategory(t *testing.T) {
	pools := Pools{models.DifficultyEasy: {
		{Word: "cat", Category: "animals"},
		{Word: "dog", Category: "animals"},
		{Word: "cake", Category: "food"},
	}}
	p := NewPicker(pools, rand.New(rand.NewSource(1)))

	got, err := p.PickByCategory(models.DifficultyEasy, "animals", 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cat", "dog"}, got)

	got, err = p.PickByCategory(models.DifficultyEasy, "animals", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.ElementsMatch(t, []string{"cat", "dog"}, got[:2])

	got, err = p.PickByCategory(models.DifficultyEasy, "space", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCategoriesAndCount(t *testing.T) {
	pools := Pools{models.DifficultyHard: {
		{Word: "a", Category: "x"},
		{Word: "b", Category: "y"},
		{Word: "c", Category: "x"},
	}}
	p := NewPicker(pools, nil)
	assert.Equal(t, []string{"x", "y"}, p.Categories(models.DifficultyHard))
	assert.Equal(t, 3, p.Count(models.DifficultyHard))
	assert.Equal(t, 0, p.Count(models.DifficultyEasy))
}

func TestEmptyPool(t *testing.T) {
	p := NewPicker(Pools{}, nil)
	_, err := p.PickWord(models.DifficultyChaotic)
	assert.True(t, errors.Is(err, ErrEmptyPool))
}

func TestParseRejectsUnknownDifficulty(t *testing.T) {
	_, err := Parse(strings.NewReader("legendary:\n  - {word: dragon, category: myth}\n"))
	assert.True(t, errors.Is(err, models.ErrUnknownDifficulty))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yaml")
	require.NoError(t, os.WriteFile(path, []byte("easy:\n  - {word: moon, category: space}\n  - {word: '', category: space}\n"), 0o600))

	pools, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, pools[models.DifficultyEasy], 1)
	assert.Equal(t, Entry{Word: "moon", Category: "space"}, pools[models.DifficultyEasy][0])
}
