// internal/timer/views.go
package timer

import "fmt"

// UrgencyTier classifies remaining time for the UI.
type UrgencyTier string

const (
	UrgencyNormal   UrgencyTier = "normal"
	UrgencyWarning  UrgencyTier = "warning"
	UrgencyCritical UrgencyTier = "critical"
)

// Urgency maps seconds remaining to a tier: critical at or below 5 seconds,
// warning at or below 15, normal otherwise.
func Urgency(secondsRemaining int) UrgencyTier {
	switch {
	case secondsRemaining <= CriticalThreshold:
		return UrgencyCritical
	case secondsRemaining <= WarningThreshold:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// FormatTime renders M:SS from one minute up and bare seconds below it.
func FormatTime(secondsRemaining int) string {
	if secondsRemaining < 0 {
		secondsRemaining = 0
	}
	if secondsRemaining >= 60 {
		return fmt.Sprintf("%d:%02d", secondsRemaining/60, secondsRemaining%60)
	}
	return fmt.Sprintf("%d", secondsRemaining)
}

// Progress is the fraction of the countdown left, 1 meaning full.
func Progress(s State) float64 {
	if s.DurationSec == 0 {
		return 1
	}
	return float64(s.SecondsRemaining) / float64(s.DurationSec)
}
