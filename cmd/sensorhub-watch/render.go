package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/nerrad567/sensorhub-core/internal/dashboard"
	"github.com/nerrad567/sensorhub-core/internal/device"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// LocalTimeFormat is how timestamps are shown.
const LocalTimeFormat = "2006-01-02 15:04:05 MST"

var readingHeader = []string{"DEVICE", "TIME", "TEMP °C", "HUMIDITY %", "WATER %", "LIGHT lux", "MOTION", "BATTERY %"}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorders(tablewriter.Border{
		Left:   true,
		Right:  true,
		Top:    false,
		Bottom: false,
	})
	table.SetAutoWrapText(false)
	return table
}

func renderDevices(w io.Writer, devices ...device.Device) {
	table := newTable(w)
	table.SetHeader([]string{"DEVICE ID", "NAME", "TYPE", "LOCATION", "ACTIVE", "IP", "FIRMWARE", "INSTALLED"})
	for _, d := range devices {
		table.Append([]string{
			d.DeviceID,
			d.Name,
			d.Type,
			d.Location,
			strconv.FormatBool(d.Active),
			formatString(d.IPAddress),
			formatString(d.FirmwareVersion),
			formatTime(d.InstallDate),
		})
	}
	table.Render()
}

func renderReadings(w io.Writer, readings ...reading.Reading) {
	table := newTable(w)
	table.SetHeader(readingHeader)
	for _, r := range readings {
		table.Append(readingRow(r))
	}
	table.Render()
}

func readingRow(r reading.Reading) []string {
	return []string{
		r.DeviceID,
		formatTime(r.Timestamp),
		formatFloat(r.Temperature),
		formatFloat(r.Humidity),
		formatFloat(r.WaterLevel),
		formatFloat(r.LightIntensity),
		formatBool(r.MotionDetected),
		formatFloat(r.BatteryLevel),
	}
}

// renderState draws one dashboard frame: the latest reading of every
// device, then the selected device's history, newest at the bottom.
func renderState(w io.Writer, st dashboard.State, now time.Time) {
	fmt.Fprintf(w, "sensorhub  %d devices  updated %s\n", len(st.Devices), formatAge(st.LastPoll, now))
	if st.Error != "" {
		fmt.Fprintf(w, "error: %s\n", st.Error)
	}

	fmt.Fprintln(w, "\nLatest readings")
	if len(st.Latest) == 0 {
		fmt.Fprintln(w, "  no readings yet")
	} else {
		renderReadings(w, st.Latest...)
	}

	if st.Selected == "" {
		return
	}
	fmt.Fprintf(w, "\nHistory: %s\n", deviceLabel(st.Devices, st.Selected))
	if len(st.History) == 0 {
		fmt.Fprintln(w, "  No data found for this device")
		return
	}
	renderReadings(w, st.History...)
}

// deviceLabel is "Name (id)" when the device is known.
func deviceLabel(devices []device.Device, id string) string {
	for _, d := range devices {
		if d.DeviceID == id && d.Name != "" {
			return fmt.Sprintf("%s (%s)", d.Name, id)
		}
	}
	return id
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatBool(v *bool) string {
	if v == nil {
		return "-"
	}
	if *v {
		return "yes"
	}
	return "no"
}

func formatString(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(LocalTimeFormat)
}

func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	age := now.Sub(t).Round(time.Second)
	if age < time.Second {
		return "just now"
	}
	return age.String() + " ago"
}
