// internal/settings/settings.go
package settings

import (
	"errors"

	"github.com/jason-s-yu/sketchchain/internal/feedback"
)

const (
	// StorageKey is where the settings document lives in a key/value store.
	StorageKey = "sketch-chain-settings"

	MinDurationSec = 10
	MaxDurationSec = 300
)

var (
	// ErrNotFound is returned by a Store that has never been saved to.
	ErrNotFound = errors.New("settings not found")
	// ErrUnknownKey is returned for a key that is not a settings field.
	ErrUnknownKey = errors.New("unknown settings key")
	// ErrNotToggle is returned when toggling a non-boolean setting.
	ErrNotToggle = errors.New("setting is not a boolean")
	// ErrInvalidValue is returned when a value has the wrong type for its key.
	ErrInvalidValue = errors.New("invalid settings value")
)

// Key names a single setting. Values match the JSON field names.
type Key string

const (
	KeySound         Key = "soundEnabled"
	KeyHaptic        Key = "hapticEnabled"
	KeyDrawTime      Key = "drawTime"
	KeyGuessTime     Key = "guessTime"
	KeyReducedMotion Key = "reducedMotion"
)

// Settings are the per-device user preferences.
type Settings struct {
	SoundEnabled     bool `json:"soundEnabled"`
	HapticEnabled    bool `json:"hapticEnabled"`
	DrawDurationSec  int  `json:"drawTime"`
	GuessDurationSec int  `json:"guessTime"`
	ReducedMotion    bool `json:"reducedMotion"`
}

// Defaults returns the out-of-the-box preferences.
func Defaults() Settings {
	return Settings{
		SoundEnabled:     true,
		HapticEnabled:    true,
		DrawDurationSec:  60,
		GuessDurationSec: 45,
		ReducedMotion:    false,
	}
}

// Clamp pins both durations into [MinDurationSec, MaxDurationSec].
func (s Settings) Clamp() Settings {
	s.DrawDurationSec = clampDuration(s.DrawDurationSec)
	s.GuessDurationSec = clampDuration(s.GuessDurationSec)
	return s
}

// Toggles projects the feedback switches.
func (s Settings) Toggles() feedback.Toggles {
	return feedback.Toggles{
		Sound:         s.SoundEnabled,
		Haptic:        s.HapticEnabled,
		ReducedMotion: s.ReducedMotion,
	}
}

func clampDuration(sec int) int {
	if sec < MinDurationSec {
		return MinDurationSec
	}
	if sec > MaxDurationSec {
		return MaxDurationSec
	}
	return sec
}

// toggle flips a boolean field.
func (s Settings) toggle(k Key) (Settings, error) {
	switch k {
	case KeySound:
		s.SoundEnabled = !s.SoundEnabled
	case KeyHaptic:
		s.HapticEnabled = !s.HapticEnabled
	case KeyReducedMotion:
		s.ReducedMotion = !s.ReducedMotion
	case KeyDrawTime, KeyGuessTime:
		return s, ErrNotToggle
	default:
		return s, ErrUnknownKey
	}
	return s, nil
}

// with sets one field. Booleans expect bool, durations expect int or a JSON
// number (float64).
func (s Settings) with(k Key, v interface{}) (Settings, error) {
	switch k {
	case KeySound, KeyHaptic, KeyReducedMotion:
		b, ok := v.(bool)
		if !ok {
			return s, ErrInvalidValue
		}
		switch k {
		case KeySound:
			s.SoundEnabled = b
		case KeyHaptic:
			s.HapticEnabled = b
		default:
			s.ReducedMotion = b
		}
	case KeyDrawTime, KeyGuessTime:
		var n int
		switch x := v.(type) {
		case int:
			n = x
		case float64:
			n = int(x)
		default:
			return s, ErrInvalidValue
		}
		if k == KeyDrawTime {
			s.DrawDurationSec = n
		} else {
			s.GuessDurationSec = n
		}
	default:
		return s, ErrUnknownKey
	}
	return s.Clamp(), nil
}
