package reading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/sensorhub-core/internal/device"
)

// latestConcurrency bounds parallel Latest lookups in LatestForAll.
const latestConcurrency = 8

// DeviceLookup is the part of the device registry the service needs.
// *device.Registry satisfies it.
type DeviceLookup interface {
	Exists(ctx context.Context, deviceID string) (bool, error)
	DeviceIDs(ctx context.Context) ([]string, error)
}

// Sink is notified after a reading has been stored. Implementations must
// not block; the call happens on the recording goroutine.
type Sink interface {
	ReadingRecorded(r Reading)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r Reading)

// ReadingRecorded calls f(r).
func (f SinkFunc) ReadingRecorded(r Reading) { f(r) }

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service records and queries readings. Both the HTTP API and the MQTT
// ingest path go through Record.
type Service struct {
	repo    Repository
	devices DeviceLookup
	logger  Logger
	now     func() time.Time

	mu    sync.RWMutex
	sinks []Sink
}

// NewService creates a reading service.
func NewService(repo Repository, devices DeviceLookup) *Service {
	return &Service{
		repo:    repo,
		devices: devices,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// AddSink registers a sink for recorded readings.
func (s *Service) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Record validates and stores r, filling in ID and timestamps.
//
// A zero Timestamp means "now". Timestamps are truncated to milliseconds.
// Returns device.ErrDeviceNotFound if the device is not registered.
func (s *Service) Record(ctx context.Context, r *Reading) (*Reading, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}

	exists, err := s.devices.Exists(ctx, r.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("checking device: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", device.ErrDeviceNotFound, r.DeviceID)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	stored := *r
	stored.ID = uuid.NewString()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = now
	} else {
		stored.Timestamp = stored.Timestamp.UTC().Truncate(time.Millisecond)
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := s.repo.Insert(ctx, &stored); err != nil {
		return nil, err
	}

	s.logger.Debug("reading recorded", "device_id", stored.DeviceID, "reading_id", stored.ID)
	s.notify(stored)
	return &stored, nil
}

func (s *Service) notify(r Reading) {
	s.mu.RLock()
	sinks := s.sinks
	s.mu.RUnlock()
	for _, sink := range sinks {
		sink.ReadingRecorded(r)
	}
}

// Latest returns the newest reading for deviceID, or ErrNoReadings.
// Readings of deleted devices remain queryable.
func (s *Service) Latest(ctx context.Context, deviceID string) (*Reading, error) {
	return s.repo.Latest(ctx, deviceID)
}

// History returns readings for deviceID, newest first.
func (s *Service) History(ctx context.Context, deviceID string, q Query) ([]Reading, error) {
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		return nil, fmt.Errorf("%w: endDate before startDate", ErrInvalidReading)
	}
	return s.repo.History(ctx, deviceID, q)
}

// LatestForAll returns the newest reading of every registered device, in
// device name order. Devices that never reported are omitted.
func (s *Service) LatestForAll(ctx context.Context) ([]Reading, error) {
	ids, err := s.devices.DeviceIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	results := make([]*Reading, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(latestConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			r, err := s.repo.Latest(gctx, id)
			if err != nil {
				if errors.Is(err, ErrNoReadings) {
					return nil
				}
				return fmt.Errorf("latest reading for %s: %w", id, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	readings := make([]Reading, 0, len(ids))
	for _, r := range results {
		if r != nil {
			readings = append(readings, *r)
		}
	}
	return readings, nil
}
