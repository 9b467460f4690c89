package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	appLog "signage/internal/log"
	"signage/internal/model"
	"signage/internal/sched"
)

var (
	apiKey   string
	keyFile  string
	baseURL  string
	listURL  string
	outPath  string
	settle   time.Duration
	confName string
	confDate string
	confLoc  string
)

var outFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "out, o",
		Usage:       "where to write the schedule document",
		Value:       "schedule.json",
		Destination: &outPath,
	},
	cli.StringFlag{
		Name:        "conference-name",
		Value:       sched.DefaultConference.Name,
		Destination: &confName,
	},
	cli.StringFlag{
		Name:        "conference-dates",
		Value:       sched.DefaultConference.Dates,
		Destination: &confDate,
	},
	cli.StringFlag{
		Name:        "conference-location",
		Value:       sched.DefaultConference.Location,
		Destination: &confLoc,
	},
}

var apiFlags = append([]cli.Flag{
	cli.StringFlag{
		Name:        "api-key, k",
		Usage:       "Sched API key",
		EnvVar:      "SCHED_API_KEY",
		Destination: &apiKey,
	},
	cli.StringFlag{
		Name:        "key-file",
		Usage:       "file holding the API key, used when no key is given otherwise",
		Value:       "api_key.txt",
		Destination: &keyFile,
	},
	cli.StringFlag{
		Name:        "base-url",
		Usage:       "Sched API root of the event site",
		Value:       "https://cppcon2025.sched.com/api",
		EnvVar:      "SCHED_BASE_URL",
		Destination: &baseURL,
	},
}, outFlags...)

var scrapeFlags = append([]cli.Flag{
	cli.StringFlag{
		Name:        "url, u",
		Usage:       "public session listing to scrape",
		Value:       sched.DefaultListingURL,
		Destination: &listURL,
	},
	cli.DurationFlag{
		Name:        "settle",
		Usage:       "extra time for the listing's scripts to finish",
		Value:       10 * time.Second,
		Destination: &settle,
	},
}, outFlags...)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		appLog.Warn("could not read .env", "reason", err.Error())
	}

	app := cli.App{
		Name:      "schedimport",
		HelpName:  "schedimport",
		Usage:     "produce a signage schedule.json from a Sched event site",
		Version:   "v1.0.0",
		UsageText: "schedimport <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "api",
				Usage:  "export sessions through the Sched API",
				Action: importAPI,
				Flags:  apiFlags,
			},
			{
				Name:   "scrape",
				Usage:  "scrape the public listing with headless Chromium",
				Action: importScrape,
				Flags:  scrapeFlags,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Printf("schedimport: %s\n", err.Error())
		os.Exit(1)
	}
}

func conference() model.Conference {
	return model.Conference{Name: confName, Dates: confDate, Location: confLoc}
}

func importAPI(*cli.Context) error {
	fs := afero.NewOsFs()
	key, err := resolveKey(fs, apiKey, keyFile)
	if err != nil {
		return err
	}
	client, err := sched.NewClient(baseURL, key, sched.ClientOptions{})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessions, err := client.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return errors.New("no sessions returned")
	}
	return write(fs, sched.Convert(conference(), sessions))
}

func importScrape(*cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	doc, err := sched.Scrape(ctx, conference(), sched.ScrapeOptions{URL: listURL, Settle: settle})
	if err != nil {
		return err
	}
	return write(afero.NewOsFs(), doc)
}

func write(fs afero.Fs, doc model.Document) error {
	if err := sched.WriteDocument(fs, outPath, doc); err != nil {
		return err
	}
	appLog.Info("schedule written", "path", outPath, "events", len(doc.Events))
	return nil
}

// resolveKey prefers an explicit or environment key, then the key file.
func resolveKey(fs afero.Fs, key, file string) (string, error) {
	if key = strings.TrimSpace(key); key != "" {
		return key, nil
	}
	if file == "" {
		return "", sched.ErrNoAPIKey
	}
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w (set --api-key, SCHED_API_KEY or %s)", sched.ErrNoAPIKey, file)
		}
		return "", err
	}
	if key = strings.TrimSpace(string(data)); key == "" {
		return "", fmt.Errorf("%w: %s is empty", sched.ErrNoAPIKey, file)
	}
	return key, nil
}
