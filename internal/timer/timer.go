// internal/timer/timer.go
package timer

import (
	"sync"
	"time"

	"github.com/jason-s-yu/sketchchain/internal/feedback"
	"github.com/jason-s-yu/sketchchain/internal/observe"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultDurationSec is used when Start is called without a prior Init.
	DefaultDurationSec = 60

	WarningThreshold  = 15
	CriticalThreshold = 5
)

// State is a snapshot of the countdown. SecondsRemaining never leaves
// [0, DurationSec]; Paused only matters while Running.
type State struct {
	DurationSec      int  `json:"durationSec"`
	SecondsRemaining int  `json:"secondsRemaining"`
	Running          bool `json:"running"`
	Paused           bool `json:"paused"`
}

// Active reports whether the countdown is currently consuming time.
func (s State) Active() bool { return s.Running && !s.Paused }

// Done reports whether the countdown has hit zero.
func (s State) Done() bool { return s.SecondsRemaining == 0 }

// Timer is a one-second countdown with pause/resume and a completion callback.
//
// Every Init, Stop and Start bumps a generation counter. Cadence goroutines and
// scheduled completion callbacks carry the generation they were created under
// and drop themselves once it no longer matches.
type Timer struct {
	mu          sync.Mutex
	state       State
	initialized bool
	gen         uint64

	onComplete func()
	fired      bool // completion already delivered or scheduled for this Start
	pending    bool // scheduled by tick but not yet picked up by deliver

	cadence    Cadence
	stopCh     chan struct{}
	newCadence CadenceFunc

	haptics feedback.Haptics
	log     *logrus.Entry
	subs    observe.Broadcaster[State]
}

// Option configures a Timer.
type Option func(*Timer)

// WithHaptics routes threshold pulses to h.
func WithHaptics(h feedback.Haptics) Option {
	return func(t *Timer) {
		if h != nil {
			t.haptics = h
		}
	}
}

// WithCadence replaces the one-second ticker source.
func WithCadence(fn CadenceFunc) Option {
	return func(t *Timer) {
		if fn != nil {
			t.newCadence = fn
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *logrus.Entry) Option {
	return func(t *Timer) {
		if log != nil {
			t.log = log
		}
	}
}

// New builds an idle timer with the default duration.
func New(opts ...Option) *Timer {
	t := &Timer{
		state: State{
			DurationSec:      DefaultDurationSec,
			SecondsRemaining: DefaultDurationSec,
		},
		newCadence: TickerCadence,
		haptics:    feedback.Nop{},
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.WithField("component", "timer")
	return t
}

// Init cancels any countdown in flight, discards a pending completion and
// resets the state to a full, idle countdown of durationSec seconds.
func (t *Timer) Init(durationSec int) {
	if durationSec < 0 {
		durationSec = 0
	}

	t.mu.Lock()
	t.cancelCadenceLocked()
	t.gen++
	t.onComplete = nil
	t.fired = false
	t.pending = false
	t.initialized = true
	t.state = State{DurationSec: durationSec, SecondsRemaining: durationSec}
	snap := t.state
	t.mu.Unlock()

	t.subs.Publish(snap)
}

// Start begins counting down. onComplete, if non-nil, runs once when the
// countdown reaches zero (asynchronously) or when Complete is called
// (synchronously).
func (t *Timer) Start(onComplete func()) {
	t.mu.Lock()
	if !t.initialized {
		t.state = State{DurationSec: DefaultDurationSec, SecondsRemaining: DefaultDurationSec}
		t.initialized = true
	}
	t.cancelCadenceLocked()
	t.gen++
	gen := t.gen
	t.onComplete = onComplete
	t.fired = false
	t.pending = false
	t.state.Running = true
	t.state.Paused = false

	c := t.newCadence(time.Second)
	stop := make(chan struct{})
	t.cadence = c
	t.stopCh = stop
	snap := t.state
	t.mu.Unlock()

	go t.run(c, stop, gen)
	t.subs.Publish(snap)
}

func (t *Timer) run(c Cadence, stop <-chan struct{}, gen uint64) {
	for {
		select {
		case <-stop:
			return
		case <-c.C():
			if !t.tick(gen) {
				return
			}
		}
	}
}

// Tick processes one cadence firing against the current generation. The
// cadence goroutine started by Start calls it once per second; it is exported
// so hosts with their own clock can drive the countdown directly.
func (t *Timer) Tick() {
	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()
	t.tick(gen)
}

// tick reports false once the generation is stale or the countdown finished.
func (t *Timer) tick(gen uint64) bool {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return false
	}
	if !t.state.Running || t.state.Paused {
		t.mu.Unlock()
		return true
	}

	next := t.state.SecondsRemaining - 1
	var pulse feedback.Intensity
	switch {
	case next == WarningThreshold:
		pulse = feedback.IntensityLight
	case next <= CriticalThreshold && next > 0:
		pulse = feedback.IntensityMedium
	}

	finished := next <= 0
	deliver := false
	if finished {
		t.cancelCadenceLocked()
		t.state.SecondsRemaining = 0
		t.state.Running = false
		pulse = feedback.IntensityHeavy
		if t.onComplete != nil && !t.fired {
			t.fired = true
			t.pending = true
			deliver = true
		}
	} else {
		t.state.SecondsRemaining = next
	}
	snap := t.state
	t.mu.Unlock()

	if pulse != "" {
		t.haptics.Pulse(pulse)
	}
	t.subs.Publish(snap)

	if deliver {
		// Never synchronous: the zero state above is committed and published first.
		go t.deliver(gen)
	}
	return !finished
}

func (t *Timer) deliver(gen uint64) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		t.log.Debug("dropping stale completion callback")
		return
	}
	if !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	cb := t.onComplete
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Pause freezes the countdown. A no-op unless the timer is running; the
// result reports whether anything changed.
func (t *Timer) Pause() bool {
	return t.setPaused(true)
}

// Resume continues a paused countdown from where it stopped.
func (t *Timer) Resume() bool {
	return t.setPaused(false)
}

func (t *Timer) setPaused(paused bool) bool {
	t.mu.Lock()
	if !t.state.Running || t.state.Paused == paused {
		t.mu.Unlock()
		return false
	}
	t.state.Paused = paused
	snap := t.state
	t.mu.Unlock()

	t.subs.Publish(snap)
	return true
}

// Stop cancels the countdown and refills it to DurationSec without invoking
// the completion callback. Calling Stop repeatedly leaves the same state.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.cancelCadenceLocked()
	t.gen++
	t.onComplete = nil
	t.pending = false
	t.state.SecondsRemaining = t.state.DurationSec
	t.state.Running = false
	t.state.Paused = false
	snap := t.state
	t.mu.Unlock()

	t.subs.Publish(snap)
}

// Complete ends the countdown immediately and runs the completion callback
// synchronously (used for "skip"). The callback still runs at most once per
// Start. A delivery scheduled by a natural expiry that has not run yet is taken
// over here; the generation bump cancels the asynchronous copy.
func (t *Timer) Complete() {
	t.mu.Lock()
	t.cancelCadenceLocked()
	t.gen++
	t.state.SecondsRemaining = 0
	t.state.Running = false
	var cb func()
	switch {
	case !t.fired:
		cb = t.onComplete
		t.fired = true
	case t.pending:
		cb = t.onComplete
		t.pending = false
	}
	snap := t.state
	t.mu.Unlock()

	t.subs.Publish(snap)
	if cb != nil {
		cb()
	}
}

// Snapshot returns the current state.
func (t *Timer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe calls fn with the current state and again after every change.
func (t *Timer) Subscribe(fn func(State)) (cancel func()) {
	return t.subs.Subscribe(t.Snapshot(), fn)
}

func (t *Timer) cancelCadenceLocked() {
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
	if t.cadence != nil {
		t.cadence.Stop()
		t.cadence = nil
	}
}
