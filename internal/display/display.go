package display

import (
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"signage/internal/model"
	"signage/internal/schedule"
)

// Stable slot ids in the kiosk page.
const (
	SlotDay      = "current-day"
	SlotTitle    = "section-title"
	SlotEvents   = "events-list"
	SlotAdBanner = "ad-banner"
)

const emptyHint = "Check back later for updates"

// EventSource is the read side of schedule.Loader.
type EventSource interface {
	Events() []model.Event
}

// Item is one rendered block in the events list.
type Item struct {
	Title     string `json:"title"`
	TimeRange string `json:"time"`
	Location  string `json:"location"`
	Speaker   string `json:"speaker"`
	// Category is the style hook; "general" when the event has none.
	Category string `json:"category"`
}

// View is everything the kiosk shows at one instant apart from the ad.
type View struct {
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Items    []Item `json:"items"`
	// Empty marks Items as the single "no events" placeholder.
	Empty bool   `json:"empty"`
	Day   string `json:"day"`
	Time  string `json:"time"`
}

// Options configures a Controller.
type Options struct {
	Clock    clockwork.Clock
	Location *time.Location
	Window   schedule.Window
}

// Controller turns the loaded events into views. It keeps no display
// state of its own; every view is computed from the source and the clock.
type Controller struct {
	events EventSource
	clock  clockwork.Clock
	loc    *time.Location
	window schedule.Window
}

func NewController(events EventSource, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Window == (schedule.Window{}) {
		opts.Window = schedule.DefaultWindow
	}
	return &Controller{
		events: events,
		clock:  opts.Clock,
		loc:    opts.Location,
		window: opts.Window,
	}
}

// Now is the controller clock in the display location.
func (c *Controller) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// View renders the list for category ("" for all categories).
func (c *Controller) View(category string) View {
	now := c.Now()
	upcoming := schedule.Upcoming(c.events.Events(), now, category, c.window)
	day, clock := DayClock(now)

	v := View{
		Title:    Title(category),
		Category: category,
		Day:      day,
		Time:     clock,
	}
	if len(upcoming) == 0 {
		v.Empty = true
		v.Items = []Item{{Title: EmptyMessage(category), TimeRange: emptyHint}}
		return v
	}

	v.Items = make([]Item, 0, len(upcoming))
	for _, ev := range upcoming {
		v.Items = append(v.Items, ItemFor(ev))
	}
	return v
}

// ItemFor formats one event block.
func ItemFor(ev model.Event) Item {
	return Item{
		Title:     ev.Title,
		TimeRange: fmt.Sprintf("%s - %s (%d min)", ev.Start, ev.End(), ev.Duration),
		Location:  ev.Location,
		Speaker:   ev.Speaker,
		Category:  ev.StyleCategory(),
	}
}

// Title is the section heading for category.
func Title(category string) string {
	if category == "" {
		return "Upcoming Events"
	}
	return "Upcoming " + capitalize(category) + " Events"
}

// EmptyMessage is the placeholder text when nothing qualifies. The
// category is used verbatim here, unlike in Title.
func EmptyMessage(category string) string {
	if category == "" {
		return "No upcoming events"
	}
	return "No upcoming " + category + " events"
}

// DayClock returns the weekday name and a HH:MM:SS wall clock for now.
func DayClock(now time.Time) (day, clock string) {
	return now.Weekday().String(), now.Format("15:04:05")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
