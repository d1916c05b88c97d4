// internal/feedback/gate.go
package feedback

import (
	"github.com/sirupsen/logrus"
)

// Toggles is the subset of user preferences that decides which channels fire.
type Toggles struct {
	Sound         bool
	Haptic        bool
	ReducedMotion bool
}

// AllOn enables every channel.
func AllOn() Toggles { return Toggles{Sound: true, Haptic: true} }

// Gate forwards requests to the underlying sinks only when the matching toggle
// is on. Sink panics are recovered and logged: feedback is an enhancement and
// must never take the game down with it.
type Gate struct {
	Audio       Audio
	Haptics     Haptics
	Celebration Celebration

	// Toggles is read on every request so preference changes apply immediately.
	Toggles func() Toggles
	Log     *logrus.Entry
}

// NewGate wires all three channels to the same sink, which is the common case
// for a Hub.
func NewGate(sink interface {
	Audio
	Haptics
	Celebration
}, toggles func() Toggles, log *logrus.Entry) *Gate {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Gate{
		Audio:       sink,
		Haptics:     sink,
		Celebration: sink,
		Toggles:     toggles,
		Log:         log.WithField("component", "feedback"),
	}
}

func (g *Gate) toggles() Toggles {
	if g.Toggles == nil {
		return AllOn()
	}
	return g.Toggles()
}

func (g *Gate) Play(s Sound) {
	if g.Audio == nil || !g.toggles().Sound {
		return
	}
	g.guard("audio", string(s), func() { g.Audio.Play(s) })
}

func (g *Gate) Pulse(i Intensity) {
	if g.Haptics == nil || !g.toggles().Haptic {
		return
	}
	g.guard("haptic", string(i), func() { g.Haptics.Pulse(i) })
}

func (g *Gate) Celebrate(e Effect, origin *Origin) {
	if g.Celebration == nil || g.toggles().ReducedMotion {
		return
	}
	g.guard("celebration", string(e), func() { g.Celebration.Celebrate(e, origin) })
}

func (g *Gate) guard(channel, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil && g.Log != nil {
			g.Log.WithFields(logrus.Fields{
				"channel": channel,
				"name":    name,
				"panic":   r,
			}).Warn("feedback sink failed")
		}
	}()
	fn()
}
