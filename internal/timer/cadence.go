// internal/timer/cadence.go
package timer

import "time"

// Cadence is a recurring tick source.
type Cadence interface {
	C() <-chan time.Time
	Stop()
}

// CadenceFunc creates a Cadence firing every d.
type CadenceFunc func(d time.Duration) Cadence

type tickerCadence struct {
	t *time.Ticker
}

func (c tickerCadence) C() <-chan time.Time { return c.t.C }

func (c tickerCadence) Stop() { c.t.Stop() }

// TickerCadence is the wall-clock cadence backed by time.Ticker.
func TickerCadence(d time.Duration) Cadence {
	return tickerCadence{t: time.NewTicker(d)}
}
