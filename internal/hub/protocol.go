package hub

import "signage/internal/rotator"

type MessageType string

const (
	MsgClock  MessageType = "clock"
	MsgEvents MessageType = "events"
	MsgAd     MessageType = "ad"
	MsgReload MessageType = "reload"
)

// Ad phases. A rotation sends fade, waits the transition, then show.
const (
	PhaseFade = "fade"
	PhaseShow = "show"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

type ClockPayload struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type EventsPayload struct {
	Title string `json:"title"`
	Empty bool   `json:"empty"`
	// HTML is the rendered events-list slot.
	HTML string `json:"html"`
}

type AdPayload struct {
	Phase string `json:"phase"`
	rotator.Frame
}
