package display

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"signage/internal/rotator"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Page is the data for a full kiosk page render.
type Page struct {
	View       View
	Conference string
	// Ad is banner markup from config, inserted unescaped.
	Ad template.HTML
	// Ready tells the capture step that the page holds loaded data.
	Ready  bool
	WSPath string
}

// SlotIDs are the element ids the client script writes frames into.
type SlotIDs struct {
	Day      string
	Title    string
	Events   string
	AdBanner string
}

// Slots feeds the stable ids to the template, which also publishes them to
// the script as data-slot-* attributes on <body>.
func (Page) Slots() SlotIDs {
	return SlotIDs{Day: SlotDay, Title: SlotTitle, Events: SlotEvents, AdBanner: SlotAdBanner}
}

// AdMarkup wraps a banner frame for the page template.
func AdMarkup(f rotator.Frame, ok bool) template.HTML {
	if !ok {
		return ""
	}
	return template.HTML(f.Markup)
}

// RenderPage writes the kiosk HTML document.
func RenderPage(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "page", p)
}

// RenderEvents renders only the events-list slot contents.
func RenderEvents(v View) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "events", v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
