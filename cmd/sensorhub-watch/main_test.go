package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/sensorhub-core/internal/dashboard"
	"github.com/nerrad567/sensorhub-core/internal/device"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

func f64(v float64) *float64 { return &v }

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRenderReadings(t *testing.T) {
	motion := true
	var buf bytes.Buffer
	renderReadings(&buf, reading.Reading{
		DeviceID:       "gh-1",
		Temperature:    f64(21.5),
		MotionDetected: &motion,
		Timestamp:      ts,
	})

	out := buf.String()
	for _, want := range []string{"DEVICE", "TEMP °C", "gh-1", "21.5", "yes", ts.Local().Format(LocalTimeFormat)} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDevices(t *testing.T) {
	ip := "10.0.0.5"
	var buf bytes.Buffer
	renderDevices(&buf, device.Device{DeviceID: "gh-1", Name: "Greenhouse", Type: "multi", Location: "North", Active: true, IPAddress: &ip})

	out := buf.String()
	for _, want := range []string{"DEVICE ID", "gh-1", "Greenhouse", "North", "true", "10.0.0.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderState(t *testing.T) {
	st := dashboard.State{
		Devices:  []device.Device{{DeviceID: "gh-1", Name: "Greenhouse"}},
		Latest:   []reading.Reading{{DeviceID: "gh-1", Temperature: f64(20), Timestamp: ts}},
		Selected: "gh-1",
		Error:    "Failed to add device",
		LastPoll: ts,
	}

	var buf bytes.Buffer
	renderState(&buf, st, ts.Add(3*time.Second))
	out := buf.String()

	for _, want := range []string{"1 devices", "updated 3s ago", "error: Failed to add device", "Latest readings", "History: Greenhouse (gh-1)", "No data found for this device"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"never", time.Time{}, "never"},
		{"just now", ts, "just now"},
		{"minutes", ts.Add(-90 * time.Second), "1m30s ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAge(tt.t, ts); got != tt.want {
				t.Errorf("formatAge() = %q, want %q", got, tt.want)
			}
		})
	}
}

// stubAPI serves the REST endpoints the CLI uses and records POST bodies.
func stubAPI(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var mu sync.Mutex
	posted := &[]map[string]any{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/devices", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"deviceId":"gh-1","name":"Greenhouse","type":"multi","location":"North","active":true}]`) //nolint:errcheck // test stub
	})
	mux.HandleFunc("POST /api/data", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // checked by the test
		mu.Lock()
		*posted = append(*posted, body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"r1","deviceId":"gh-1","temperature":22,"timestamp":"2026-03-01T12:00:00Z"}`) //nolint:errcheck // test stub
	})
	mux.HandleFunc("GET /api/data/history/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"No data found for this device"}`) //nolint:errcheck // test stub
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, posted
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SENSORHUB_CONFIG", "")
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.RunContext(context.Background(), append([]string{"sensorhub-watch"}, args...))
	return buf.String(), err
}

func TestApp_Devices(t *testing.T) {
	srv, _ := stubAPI(t)

	out, err := runApp(t, "--api-url", srv.URL+"/api", "devices")
	if err != nil {
		t.Fatalf("devices error = %v", err)
	}
	if !strings.Contains(out, "Greenhouse") {
		t.Errorf("output = %q", out)
	}

	out, err = runApp(t, "--api-url", srv.URL, "--output", "json", "devices")
	if err != nil {
		t.Fatalf("devices --output json error = %v", err)
	}
	var devices []device.Device
	if err := json.Unmarshal([]byte(out), &devices); err != nil || len(devices) != 1 {
		t.Errorf("json output = %q (%v)", out, err)
	}
}

func TestApp_AddReadingSendsOnlyGivenFlags(t *testing.T) {
	srv, posted := stubAPI(t)

	_, err := runApp(t, "--api-url", srv.URL, "add-reading", "--device-id", "gh-1", "--temperature", "22", "--motion-detected")
	if err != nil {
		t.Fatalf("add-reading error = %v", err)
	}
	if len(*posted) != 1 {
		t.Fatalf("posted %d bodies, want 1", len(*posted))
	}
	body := (*posted)[0]
	if body["deviceId"] != "gh-1" || body["temperature"] != 22.0 || body["motionDetected"] != true {
		t.Errorf("body = %v", body)
	}
	for _, absent := range []string{"humidity", "waterLevel", "lightIntensity", "batteryLevel", "timestamp"} {
		if _, ok := body[absent]; ok {
			t.Errorf("body has unset field %q", absent)
		}
	}
}

func TestApp_HistoryNotFound(t *testing.T) {
	srv, _ := stubAPI(t)

	_, err := runApp(t, "--api-url", srv.URL, "history", "gh-1")
	if !dashboard.IsNotFound(err) {
		t.Errorf("history error = %v, want a 404", err)
	}

	if _, err := runApp(t, "--api-url", srv.URL, "history"); err == nil {
		t.Error("history without a deviceId should fail")
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_RendersUntilCancelled(t *testing.T) {
	srv, _ := stubAPI(t)
	client := dashboard.NewClient(srv.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, &out, client, settings{pollInterval: time.Hour, historyLimit: 10}, "")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "History: Greenhouse (gh-1)") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
	if !strings.Contains(out.String(), "History: Greenhouse (gh-1)") {
		t.Errorf("watch output = %q", out.String())
	}
}
