package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/sensorhub-core/internal/infrastructure/config"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/logging"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// clearEnv keeps the developer's environment out of config.Load. The
// variables are unset, not emptied: envconfig rejects "" for ints and bools.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MONGO_URI", "NODE_ENV", "PORT", "SENSORHUB_MONGODB_URI", "SENSORHUB_STORAGE_BACKEND", "SENSORHUB_MQTT_ENABLED", "SENSORHUB_INFLUXDB_ENABLED", "SENSORHUB_API_PORT"} {
		t.Setenv(k, "") // restores the original value after the test
		os.Unsetenv(k)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRun_InvalidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_StartsAndShutsDown(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data", "sensorhub.db")
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := fmt.Sprintf(`
database:
  path: %q
  wal_mode: true
  busy_timeout: 5
api:
  host: "127.0.0.1"
  port: %d
logging:
  level: error
  format: text
  output: discard
`, dbPath, freePort(t))
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(configEnvVar, configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpenStorage_SQLite(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Backend: config.BackendSQLite},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "s.db"), BusyTimeout: 5},
	}
	ctx := context.Background()

	store, err := openStorage(ctx, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("openStorage() error = %v", err)
	}
	defer store.close()

	if err := store.health.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	ids, err := store.devices.ListIDs(ctx)
	if err != nil || len(ids) != 0 {
		t.Errorf("ListIDs() = %v, %v; want empty schema", ids, err)
	}
	if _, err := store.readings.Latest(ctx, "nobody"); !errors.Is(err, reading.ErrNoReadings) {
		t.Errorf("Latest() error = %v, want ErrNoReadings", err)
	}
}

type fakeWriter struct {
	deviceID string
	fields   map[string]interface{}
	ts       time.Time
	calls    int
}

func (w *fakeWriter) WriteReading(deviceID string, fields map[string]interface{}, ts time.Time) {
	w.deviceID, w.fields, w.ts = deviceID, fields, ts
	w.calls++
}

func TestInfluxSink(t *testing.T) {
	w := &fakeWriter{}
	sink := influxSink{writer: w}
	temp := 21.5
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sink.ReadingRecorded(reading.Reading{DeviceID: "gh-1", Temperature: &temp, Timestamp: ts})
	if w.calls != 1 || w.deviceID != "gh-1" || !w.ts.Equal(ts) {
		t.Fatalf("write = %+v", w)
	}
	if w.fields["temperature"] != 21.5 {
		t.Errorf("fields = %v", w.fields)
	}

	sink.ReadingRecorded(reading.Reading{DeviceID: "gh-1", Timestamp: ts})
	if w.calls != 1 {
		t.Error("reading without values was written")
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	topic    string
	retained bool
	err      error
}

func (p *fakePublisher) PublishJSON(topic string, _ any, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic, p.retained = topic, retained
	return p.err
}

type countingLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func TestMQTTSink(t *testing.T) {
	pub := &fakePublisher{}
	logger := &countingLogger{}
	sink := newMQTTSink(pub, logger)

	var wg sync.WaitGroup
	sink.wait = wg.Done

	wg.Add(1)
	sink.ReadingRecorded(reading.Reading{DeviceID: "gh-1"})
	wg.Wait()

	if want := (mqtt.Topics{}).Readings("gh-1"); pub.topic != want {
		t.Errorf("topic = %q, want %q", pub.topic, want)
	}
	if !pub.retained {
		t.Error("reading should be published retained")
	}

	pub.err = errors.New("not connected")
	wg.Add(1)
	sink.ReadingRecorded(reading.Reading{DeviceID: "gh-1"})
	wg.Wait()
	if logger.warns != 1 {
		t.Errorf("warns = %d, want 1", logger.warns)
	}
}
