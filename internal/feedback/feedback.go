// internal/feedback/feedback.go
package feedback

// Sound names the audio cues the game can request.
type Sound string

const (
	SoundTick       Sound = "tick"
	SoundTickUrgent Sound = "tick-urgent"
	SoundReveal     Sound = "reveal"
	SoundSuccess    Sound = "success"
	SoundTimesUp    Sound = "times-up"
	SoundWhoosh     Sound = "whoosh"
	SoundPop        Sound = "pop"
	SoundCountdown  Sound = "countdown"
	SoundCelebrate  Sound = "celebrate"
)

// Intensity is the strength of a haptic pulse.
type Intensity string

const (
	IntensityLight  Intensity = "light"
	IntensityMedium Intensity = "medium"
	IntensityHeavy  Intensity = "heavy"
)

// Effect names a celebration animation.
type Effect string

const (
	EffectBurst     Effect = "burst"
	EffectCannons   Effect = "cannons"
	EffectRain      Effect = "rain"
	EffectFireworks Effect = "fireworks"
	EffectPop       Effect = "pop"
)

// Origin is a normalized screen position (0..1 on both axes) for effects that
// start from a point, such as EffectPop.
type Origin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Audio plays sound cues. Implementations must not block.
type Audio interface {
	Play(s Sound)
}

// Haptics triggers vibration pulses. Implementations must not block.
type Haptics interface {
	Pulse(i Intensity)
}

// Celebration runs confetti-style effects. origin may be nil.
type Celebration interface {
	Celebrate(e Effect, origin *Origin)
}

// Nop discards every request.
type Nop struct{}

func (Nop) Play(Sound) {}

func (Nop) Pulse(Intensity) {}

func (Nop) Celebrate(Effect, *Origin) {}
