package rotator

import (
	"sync"
	"time"
)

// DefaultTransition is the fade pause between two banners.
const DefaultTransition = 250 * time.Millisecond

// Frame is one banner as shown in the ad slot.
type Frame struct {
	Index  int    `json:"index"`
	Markup string `json:"markup"`
}

// Rotator cycles a fixed, ordered set of banners. The zero value holds no
// banners and never produces a frame.
type Rotator struct {
	visuals    []string
	transition time.Duration

	mu      sync.Mutex
	next    int
	current *Frame
}

// New returns a Rotator over visuals. A non-positive transition means
// DefaultTransition.
func New(visuals []string, transition time.Duration) *Rotator {
	if transition <= 0 {
		transition = DefaultTransition
	}
	return &Rotator{
		visuals:    append([]string(nil), visuals...),
		transition: transition,
	}
}

// Len is the number of banners.
func (r *Rotator) Len() int {
	return len(r.visuals)
}

// Transition is how long the outgoing banner stays faded before the swap.
func (r *Rotator) Transition() time.Duration {
	return r.transition
}

// Next makes the banner at the current index visible and advances the
// index, wrapping at the end. The first call yields index 0.
func (r *Rotator) Next() (Frame, bool) {
	if len(r.visuals) == 0 {
		return Frame{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f := Frame{Index: r.next, Markup: r.visuals[r.next]}
	r.current = &f
	r.next = (r.next + 1) % len(r.visuals)
	return f, true
}

// Current is the banner on screen, if any has been shown yet.
func (r *Rotator) Current() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Frame{}, false
	}
	return *r.current, true
}
