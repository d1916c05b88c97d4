// internal/feedback/hub.go
package feedback

import "github.com/jason-s-yu/sketchchain/internal/observe"

// Channel identifies which collaborator an Event is meant for.
type Channel string

const (
	ChannelAudio       Channel = "audio"
	ChannelHaptic      Channel = "haptic"
	ChannelCelebration Channel = "celebration"
)

// Event is a single feedback request as seen by a remote renderer (the browser
// owns the actual synthesis, vibration and confetti).
type Event struct {
	Channel   Channel   `json:"channel"`
	Sound     Sound     `json:"sound,omitempty"`
	Intensity Intensity `json:"intensity,omitempty"`
	Effect    Effect    `json:"effect,omitempty"`
	Origin    *Origin   `json:"origin,omitempty"`
}

// Hub turns feedback requests into Events and fans them out to listeners.
type Hub struct {
	events observe.Broadcaster[Event]
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Play(s Sound) {
	h.events.Publish(Event{Channel: ChannelAudio, Sound: s})
}

func (h *Hub) Pulse(i Intensity) {
	h.events.Publish(Event{Channel: ChannelHaptic, Intensity: i})
}

func (h *Hub) Celebrate(e Effect, origin *Origin) {
	h.events.Publish(Event{Channel: ChannelCelebration, Effect: e, Origin: origin})
}

// Listen registers fn for every future event.
func (h *Hub) Listen(fn func(Event)) (cancel func()) {
	return h.events.Listen(fn)
}
