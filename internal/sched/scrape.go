package sched

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "signage/internal/log"
	"signage/internal/model"
)

// DefaultListingURL is the public session listing for the default conference.
const DefaultListingURL = "https://cppcon2025.sched.com/list/descriptions"

// listing is what the in-page script extracts from one .sched-container.
type listing struct {
	Name     string   `json:"name"`
	When     string   `json:"when"`
	Location string   `json:"location"`
	Type     string   `json:"type"`
	Speakers []string `json:"speakers"`
}

const extractScript = `Array.from(document.querySelectorAll(".sched-container")).map(function (el) {
  function text(sel) {
    var n = el.querySelector(sel);
    return n ? n.innerText.trim() : "";
  }
  return {
    name: text(".name"),
    when: text(".list-single__date").replace(/\n/g, " "),
    location: text(".list-single__location"),
    type: text(".sched-event-type"),
    speakers: Array.from(el.querySelectorAll(".tip-roles h2")).map(function (h) { return h.innerText.trim(); })
  };
})`

// ScrapeOptions configures Scrape.
type ScrapeOptions struct {
	URL     string
	Timeout time.Duration
	// Settle is extra time for the listing's scripts after the first
	// container appears.
	Settle time.Duration
}

// Scrape loads the public listing in headless Chromium and converts every
// session block it finds.
func Scrape(parentCtx context.Context, conf model.Conference, opts ScrapeOptions) (model.Document, error) {
	if opts.URL == "" {
		opts.URL = DefaultListingURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parentCtx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(1920, 1080),
			chromedp.NoSandbox,
		)...)
	defer cancelAlloc()
	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var found []listing
	err := chromedp.Run(ctx,
		chromedp.Navigate(opts.URL),
		chromedp.WaitReady(".sched-container", chromedp.ByQuery),
		chromedp.Sleep(opts.Settle),
		chromedp.Evaluate(extractScript, &found),
	)
	if err != nil {
		return model.Document{}, fmt.Errorf("sched: scrape %s: %w", opts.URL, err)
	}
	appLog.Info("sched listing scraped", "url", opts.URL, "containers", len(found))

	return convertListings(conf, found), nil
}

func convertListings(conf model.Conference, found []listing) model.Document {
	doc := model.Document{Conference: &conf, Events: make([]model.Record, 0, len(found))}
	for _, l := range found {
		date, start, duration, err := parseWhen(l.When)
		if err != nil {
			appLog.Warn("sched listing skipped", "name", l.Name, "reason", err.Error())
			continue
		}
		doc.Events = append(doc.Events, model.Record{
			ID:       strconv.Itoa(len(doc.Events) + 1),
			Title:    l.Name,
			Date:     date,
			Time:     start,
			Duration: duration,
			Location: Location(l.Name, l.Location, ""),
			Category: Categorize(l.Name, l.Type, ""),
			Speaker:  strings.Join(l.Speakers, ", "),
		})
	}
	return doc
}

// parseWhen reads a listing date line such as
// "Monday September 15, 2025 09:00 - 10:00 MDT". The zone suffix is ignored;
// times stay in the venue's wall clock. An end before the start is taken to
// run past midnight.
func parseWhen(s string) (date, start string, duration int, err error) {
	left, right, ok := strings.Cut(s, " - ")
	if !ok {
		return "", "", 0, fmt.Errorf("no time range in %q", s)
	}
	from, err := time.Parse("Monday January 2, 2006 15:04", strings.Join(strings.Fields(left), " "))
	if err != nil {
		return "", "", 0, err
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return "", "", 0, fmt.Errorf("no end time in %q", s)
	}
	endClock, err := model.ParseClock(fields[0])
	if err != nil {
		return "", "", 0, err
	}

	startMin := from.Hour()*60 + from.Minute()
	endMin := endClock.Minute()
	if endMin < startMin {
		endMin += 24 * 60
	}
	return from.Format(time.DateOnly), from.Format("15:04"), endMin - startMin, nil
}
