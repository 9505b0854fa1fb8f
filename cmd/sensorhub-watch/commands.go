package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/sensorhub-core/internal/dashboard"
	"github.com/nerrad567/sensorhub-core/internal/device"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Continuously display devices, latest readings and history",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "poll interval (default from config)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "history rows for the selected device (default from config)",
			},
			&cli.StringFlag{
				Name:  "device",
				Usage: "device to show history for (default: first device)",
			},
		},
		Action: func(cCtx *cli.Context) error {
			client, s, err := newClient(cCtx)
			if err != nil {
				return err
			}
			return watch(cCtx.Context, os.Stdout, client, s, cCtx.String("device"))
		},
	}
}

// watch renders every settled state until ctx is cancelled.
func watch(ctx context.Context, w io.Writer, api dashboard.API, s settings, deviceID string) error {
	dash := dashboard.NewContext(api, dashboard.Options{
		PollInterval: s.pollInterval,
		HistoryLimit: s.historyLimit,
	})

	updates := make(chan dashboard.State, 1)
	unsubscribe := dash.Subscribe(func(st dashboard.State) {
		if st.Loading {
			return
		}
		// Keep only the newest state for the render loop.
		select {
		case <-updates:
		default:
		}
		updates <- st
	})
	defer unsubscribe()

	if deviceID != "" {
		dash.Select(ctx, deviceID)
	}
	// A device fetch failure is already in the state; keep polling.
	_ = dash.Start(ctx) //nolint:errcheck // reported through State.Error
	defer dash.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-updates:
			fmt.Fprint(w, clearScreen)
			renderState(w, st, time.Now())
		}
	}
}

func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List devices",
		Action: func(cCtx *cli.Context) error {
			client, _, err := newClient(cCtx)
			if err != nil {
				return err
			}
			devices, err := client.Devices(cCtx.Context)
			if err != nil {
				return err
			}
			return show(cCtx, devices, func(w io.Writer) { renderDevices(w, devices...) })
		},
	}
}

func latestCommand() *cli.Command {
	return &cli.Command{
		Name:      "latest",
		Usage:     "Show the latest reading of every device, or of one device",
		ArgsUsage: "[deviceId]",
		Action: func(cCtx *cli.Context) error {
			client, _, err := newClient(cCtx)
			if err != nil {
				return err
			}
			if id := cCtx.Args().First(); id != "" {
				r, err := client.LatestReading(cCtx.Context, id)
				if err != nil {
					return err
				}
				return show(cCtx, r, func(w io.Writer) { renderReadings(w, *r) })
			}
			readings, err := client.LatestReadings(cCtx.Context)
			if err != nil {
				return err
			}
			return show(cCtx, readings, func(w io.Writer) { renderReadings(w, readings...) })
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show recent readings of a device, newest first",
		ArgsUsage: "<deviceId>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "number of readings (default from config)",
			},
		},
		Action: func(cCtx *cli.Context) error {
			id := cCtx.Args().First()
			if id == "" {
				return cli.Exit("history requires a deviceId", 2)
			}
			client, s, err := newClient(cCtx)
			if err != nil {
				return err
			}
			readings, err := client.History(cCtx.Context, id, s.historyLimit)
			if err != nil {
				return err
			}
			return show(cCtx, readings, func(w io.Writer) { renderReadings(w, readings...) })
		},
	}
}

func addDeviceCommand() *cli.Command {
	return &cli.Command{
		Name:  "add-device",
		Usage: "Register a device",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "device-id", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "type", Required: true},
			&cli.StringFlag{Name: "location", Required: true},
			&cli.StringFlag{Name: "ip-address"},
			&cli.StringFlag{Name: "firmware-version"},
		},
		Action: func(cCtx *cli.Context) error {
			client, _, err := newClient(cCtx)
			if err != nil {
				return err
			}
			in := device.NewDevice{
				DeviceID: cCtx.String("device-id"),
				Name:     cCtx.String("name"),
				Type:     cCtx.String("type"),
				Location: cCtx.String("location"),
			}
			if cCtx.IsSet("ip-address") {
				ip := cCtx.String("ip-address")
				in.IPAddress = &ip
			}
			if cCtx.IsSet("firmware-version") {
				fw := cCtx.String("firmware-version")
				in.FirmwareVersion = &fw
			}
			d, err := client.CreateDevice(cCtx.Context, in)
			if err != nil {
				return err
			}
			return show(cCtx, d, func(w io.Writer) { renderDevices(w, *d) })
		},
	}
}

func addReadingCommand() *cli.Command {
	return &cli.Command{
		Name:  "add-reading",
		Usage: "Store a reading for a device; only the given values are sent",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "device-id", Required: true},
			&cli.Float64Flag{Name: "temperature", Usage: "°C"},
			&cli.Float64Flag{Name: "humidity", Usage: "%"},
			&cli.Float64Flag{Name: "water-level", Usage: "%"},
			&cli.Float64Flag{Name: "light-intensity", Usage: "lux"},
			&cli.BoolFlag{Name: "motion-detected"},
			&cli.Float64Flag{Name: "battery-level", Usage: "%"},
			&cli.TimestampFlag{Name: "timestamp", Layout: time.RFC3339, Usage: "reading time (default: now on the server)"},
		},
		Action: func(cCtx *cli.Context) error {
			client, _, err := newClient(cCtx)
			if err != nil {
				return err
			}
			r, err := client.CreateReading(cCtx.Context, readingFromFlags(cCtx))
			if err != nil {
				return err
			}
			return show(cCtx, r, func(w io.Writer) { renderReadings(w, *r) })
		},
	}
}

func deleteDeviceCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-device",
		Usage:     "Remove a device (its readings are kept)",
		ArgsUsage: "<deviceId>",
		Action: func(cCtx *cli.Context) error {
			id := cCtx.Args().First()
			if id == "" {
				return cli.Exit("delete-device requires a deviceId", 2)
			}
			client, _, err := newClient(cCtx)
			if err != nil {
				return err
			}
			if err := client.DeleteDevice(cCtx.Context, id); err != nil {
				return err
			}
			fmt.Fprintf(cCtx.App.Writer, "deleted %s\n", id)
			return nil
		},
	}
}

// readingFromFlags builds the request from the flags that were given.
func readingFromFlags(cCtx *cli.Context) dashboard.NewReading {
	in := dashboard.NewReading{DeviceID: cCtx.String("device-id")}
	floats := map[string]**float64{
		"temperature":     &in.Temperature,
		"humidity":        &in.Humidity,
		"water-level":     &in.WaterLevel,
		"light-intensity": &in.LightIntensity,
		"battery-level":   &in.BatteryLevel,
	}
	for name, dst := range floats {
		if cCtx.IsSet(name) {
			v := cCtx.Float64(name)
			*dst = &v
		}
	}
	if cCtx.IsSet("motion-detected") {
		v := cCtx.Bool("motion-detected")
		in.MotionDetected = &v
	}
	if cCtx.IsSet("timestamp") {
		in.Timestamp = cCtx.Timestamp("timestamp")
	}
	return in
}

// show writes result as JSON or through the table renderer.
func show(cCtx *cli.Context, result any, table func(io.Writer)) error {
	w := cCtx.App.Writer
	switch cCtx.String("output") {
	case encodeJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case encodeColumn, "":
		table(w)
		return nil
	default:
		return fmt.Errorf("unknown --output option: %s", cCtx.String("output"))
	}
}
