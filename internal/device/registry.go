package device

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the device service used by the API and the reading service.
// It wraps a Repository with defaulting, validation and logging.
//
// There is no cache: every call reaches the store, so several server
// processes may share one database.
type Registry struct {
	repo   Repository
	logger Logger
	now    func() time.Time
}

// NewRegistry creates a new device registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// ListDevices returns all devices ordered by name.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	return r.repo.List(ctx)
}

// DeviceIDs returns every deviceId, ordered by device name.
func (r *Registry) DeviceIDs(ctx context.Context) ([]string, error) {
	return r.repo.ListIDs(ctx)
}

// GetDevice returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	return r.repo.GetByID(ctx, deviceID)
}

// Exists reports whether deviceID is registered.
func (r *Registry) Exists(ctx context.Context, deviceID string) (bool, error) {
	_, err := r.repo.GetByID(ctx, deviceID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrDeviceNotFound):
		return false, nil
	default:
		return false, err
	}
}

// CreateDevice applies defaults, validates and persists a new device.
func (r *Registry) CreateDevice(ctx context.Context, in NewDevice) (*Device, error) {
	d := in.Build(r.now())
	if err := ValidateDevice(d); err != nil {
		return nil, err
	}

	if err := r.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	r.logger.Info("device created", "device_id", d.DeviceID, "name", d.Name)
	return d, nil
}

// UpdateDevice validates u and applies it, returning the updated device.
func (r *Registry) UpdateDevice(ctx context.Context, deviceID string, u Update) (*Device, error) {
	if err := ValidateUpdate(u); err != nil {
		return nil, err
	}

	d, err := r.repo.Update(ctx, deviceID, u)
	if err != nil {
		return nil, err
	}

	r.logger.Info("device updated", "device_id", deviceID)
	return d, nil
}

// DeleteDevice removes a device. Its readings stay in the reading store.
func (r *Registry) DeleteDevice(ctx context.Context, deviceID string) error {
	if err := r.repo.Delete(ctx, deviceID); err != nil {
		return err
	}

	r.logger.Info("device deleted", "device_id", deviceID)
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count(ctx context.Context) (int, error) {
	ids, err := r.repo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting devices: %w", err)
	}
	return len(ids), nil
}
