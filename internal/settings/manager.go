// internal/settings/manager.go
package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/jason-s-yu/sketchchain/internal/feedback"
	"github.com/jason-s-yu/sketchchain/internal/observe"
	"github.com/sirupsen/logrus"
)

// Manager holds the live settings and writes every change through to a Store.
// Store failures are logged and never surface to callers: on load the defaults
// are used, on save the in-memory value still changes.
type Manager struct {
	mu    sync.Mutex
	cur   Settings
	store Store
	log   *logrus.Entry
	subs  observe.Broadcaster[Settings]
}

// NewManager loads the saved settings from store, falling back to Defaults.
func NewManager(ctx context.Context, store Store, log *logrus.Entry) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Manager{store: store, log: log.WithField("component", "settings")}

	s, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		s = Defaults()
	case err != nil:
		m.log.Warnf("failed to load settings, using defaults: %v", err)
		s = Defaults()
	}
	m.cur = s.Clamp()
	return m
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Toggles is the accessor handed to feedback.Gate.
func (m *Manager) Toggles() feedback.Toggles {
	return m.Get().Toggles()
}

// Replace stores s (clamped) as the new settings.
func (m *Manager) Replace(ctx context.Context, s Settings) Settings {
	out, _ := m.update(ctx, func(Settings) (Settings, error) { return s.Clamp(), nil })
	return out
}

// Set changes a single setting.
func (m *Manager) Set(ctx context.Context, k Key, v interface{}) (Settings, error) {
	return m.update(ctx, func(cur Settings) (Settings, error) { return cur.with(k, v) })
}

// Toggle flips a boolean setting.
func (m *Manager) Toggle(ctx context.Context, k Key) (Settings, error) {
	return m.update(ctx, func(cur Settings) (Settings, error) { return cur.toggle(k) })
}

// Reset restores and saves the defaults.
func (m *Manager) Reset(ctx context.Context) Settings {
	out, _ := m.update(ctx, func(Settings) (Settings, error) { return Defaults(), nil })
	return out
}

// Subscribe calls fn with the current settings and after every change.
func (m *Manager) Subscribe(fn func(Settings)) (cancel func()) {
	return m.subs.Subscribe(m.Get(), fn)
}

func (m *Manager) update(ctx context.Context, fn func(Settings) (Settings, error)) (Settings, error) {
	m.mu.Lock()
	next, err := fn(m.cur)
	if err != nil {
		cur := m.cur
		m.mu.Unlock()
		return cur, err
	}
	m.cur = next
	m.mu.Unlock()

	if err := m.store.Save(ctx, next); err != nil {
		m.log.Warnf("failed to save settings: %v", err)
	}
	m.subs.Publish(next)
	return next, nil
}
