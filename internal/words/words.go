// internal/words/words.go
package words

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/jason-s-yu/sketchchain/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var embedded []byte

// ErrEmptyPool is returned when a difficulty has no words.
var ErrEmptyPool = errors.New("word pool is empty")

// Source supplies seed words for new rounds.
type Source interface {
	PickWord(d models.Difficulty) (string, error)
	PickWords(d models.Difficulty, count int) ([]string, error)
}

// Entry is a single word with its category.
type Entry struct {
	Word     string `yaml:"word" json:"word"`
	Category string `yaml:"category" json:"category"`
}

// Pools maps each difficulty to its words.
type Pools map[models.Difficulty][]Entry

// Parse decodes a YAML document of pools, skipping blank words.
func Parse(r io.Reader) (Pools, error) {
	raw := map[string][]Entry{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode word pools: %w", err)
	}
	pools := Pools{}
	for name, entries := range raw {
		d, err := models.ParseDifficulty(name)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Word != "" {
				pools[d] = append(pools[d], e)
			}
		}
	}
	return pools, nil
}

// Embedded returns the pools compiled into the binary.
func Embedded() Pools {
	pools, err := Parse(bytes.NewReader(embedded))
	if err != nil {
		panic(fmt.Sprintf("embedded word pools are invalid: %v", err))
	}
	return pools
}

// LoadFile reads pools from a YAML file.
func LoadFile(path string) (Pools, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word file %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Picker draws words at random from a set of pools. Safe for concurrent use.
type Picker struct {
	pools Pools

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPicker uses rnd for every draw, or a time-seeded source when rnd is nil.
func NewPicker(pools Pools, rnd *rand.Rand) *Picker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Picker{pools: pools, rnd: rnd}
}

// PickWord returns a single random word.
func (p *Picker) PickWord(d models.Difficulty) (string, error) {
	pool := p.pools[d]
	if len(pool) == 0 {
		return "", fmt.Errorf("%s: %w", d, ErrEmptyPool)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rnd.Intn(len(pool))].Word, nil
}

// PickWords returns count words. They are unique while the pool is large
// enough; beyond that the pool is reshuffled and repeats are allowed.
func (p *Picker) PickWords(d models.Difficulty, count int) ([]string, error) {
	pool := p.pools[d]
	if len(pool) == 0 {
		return nil, fmt.Errorf("%s: %w", d, ErrEmptyPool)
	}
	out := make([]string, 0, count)
	for len(out) < count {
		for _, e := range p.shuffled(pool) {
			if len(out) == count {
				break
			}
			out = append(out, e.Word)
		}
	}
	return out, nil
}

// PickByCategory prefers words from category, padding with words from the
// whole pool when the category runs short and falling back to the whole pool
// when it has no words at all.
func (p *Picker) PickByCategory(d models.Difficulty, category string, count int) ([]string, error) {
	var matching []Entry
	for _, e := range p.pools[d] {
		if e.Category == category {
			matching = append(matching, e)
		}
	}
	if len(matching) == 0 {
		return p.PickWords(d, count)
	}

	out := make([]string, 0, count)
	for _, e := range p.shuffled(matching) {
		if len(out) == count {
			return out, nil
		}
		out = append(out, e.Word)
	}
	rest, err := p.PickWords(d, count-len(out))
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

// Categories lists the distinct categories of a pool in first-seen order.
func (p *Picker) Categories(d models.Difficulty) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range p.pools[d] {
		if !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	return out
}

// Count is the number of words in a pool.
func (p *Picker) Count(d models.Difficulty) int {
	return len(p.pools[d])
}

func (p *Picker) shuffled(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	p.mu.Lock()
	p.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	p.mu.Unlock()
	return out
}
