// Sensorhub Watch - terminal dashboard for sensorhub
//
// Polls the sensorhub REST API and renders devices, the latest reading of
// each device and the history of a selected device. The one-shot
// subcommands (devices, latest, history, add-device, add-reading) drive
// the same API for scripting.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/sensorhub-core/internal/dashboard"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/config"
)

// Version is set using ldflags at build time.
var Version = "dev"

const (
	encodeJSON   = "json"
	encodeColumn = "column"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sensorhub-watch",
		Usage:   "watch and feed a sensorhub server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "sensorhub YAML config; its dashboard section supplies defaults",
				EnvVars: []string{"SENSORHUB_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "API base URL (default from config, http://localhost:5000/api)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout (default from config)",
			},
			&cli.StringFlag{
				Name:  "output",
				Value: encodeColumn,
				Usage: "Output format: column or json",
			},
		},
		Commands: []*cli.Command{
			watchCommand(),
			devicesCommand(),
			latestCommand(),
			historyCommand(),
			addDeviceCommand(),
			addReadingCommand(),
			deleteDeviceCommand(),
		},
	}
}

// settings are the effective dashboard settings after config and flags.
type settings struct {
	apiURL       string
	pollInterval time.Duration
	historyLimit int
	timeout      time.Duration
}

// loadSettings reads the config (file when --config is given, otherwise
// defaults plus environment) and applies command line overrides.
func loadSettings(cCtx *cli.Context) (settings, error) {
	cfg, err := config.Load(cCtx.String("config"))
	if err != nil {
		return settings{}, fmt.Errorf("loading config: %w", err)
	}

	s := settings{
		apiURL:       cfg.Dashboard.APIURL,
		pollInterval: cfg.Dashboard.GetPollInterval(),
		historyLimit: cfg.Dashboard.HistoryLimit,
		timeout:      cfg.Dashboard.GetRequestTimeout(),
	}
	if cCtx.IsSet("api-url") {
		s.apiURL = cCtx.String("api-url")
	}
	if cCtx.IsSet("timeout") {
		s.timeout = cCtx.Duration("timeout")
	}
	if cCtx.IsSet("interval") {
		s.pollInterval = cCtx.Duration("interval")
	}
	if cCtx.IsSet("limit") {
		s.historyLimit = cCtx.Int("limit")
	}
	return s, nil
}

func newClient(cCtx *cli.Context) (*dashboard.Client, settings, error) {
	s, err := loadSettings(cCtx)
	if err != nil {
		return nil, settings{}, err
	}
	return dashboard.NewClient(s.apiURL, s.timeout), s, nil
}
