package device

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// MockRepository is an in-memory Repository for registry tests.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device

	listErr   error
	createErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{devices: make(map[string]*Device)}
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.Clone())
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

func (m *MockRepository) ListIDs(ctx context.Context) ([]string, error) {
	devices, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.DeviceID)
	}
	return ids, nil
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		return d.Clone(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) Create(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.devices[d.DeviceID]; ok {
		return ErrDeviceExists
	}
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	m.devices[d.DeviceID] = d.Clone()
	return nil
}

func (m *MockRepository) Update(_ context.Context, id string, u Update) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	u.Apply(d)
	d.UpdatedAt = time.Now().UTC()
	return d.Clone(), nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func newTestRegistry() (*Registry, *MockRepository) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	reg.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return reg, repo
}

func TestRegistry_CreateDevice_Defaults(t *testing.T) {
	reg, _ := newTestRegistry()

	d, err := reg.CreateDevice(context.Background(), NewDevice{
		DeviceID: " sensor-01 ",
		Name:     "Sensor One",
		Type:     "temperature",
		Location: "Lab",
	})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if d.DeviceID != "sensor-01" {
		t.Errorf("DeviceID = %q, want trimmed sensor-01", d.DeviceID)
	}
	if !d.Active {
		t.Error("Active default = false, want true")
	}
	want := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if !d.InstallDate.Equal(want) || !d.LastMaintenance.Equal(want) {
		t.Errorf("dates = %v / %v, want %v", d.InstallDate, d.LastMaintenance, want)
	}
}

func TestRegistry_CreateDevice_ExplicitInactive(t *testing.T) {
	reg, _ := newTestRegistry()
	inactive := false

	d, err := reg.CreateDevice(context.Background(), NewDevice{
		DeviceID: "sensor-02", Name: "Two", Type: "humidity", Location: "Lab", Active: &inactive,
	})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.Active {
		t.Error("Active = true, want explicit false preserved")
	}
}

func TestRegistry_CreateDevice_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   NewDevice
	}{
		{"missing deviceId", NewDevice{Name: "n", Type: "t", Location: "l"}},
		{"missing name", NewDevice{DeviceID: "d", Type: "t", Location: "l"}},
		{"missing type", NewDevice{DeviceID: "d", Name: "n", Location: "l"}},
		{"missing location", NewDevice{DeviceID: "d", Name: "n", Type: "t"}},
		{"bad ip", NewDevice{DeviceID: "d", Name: "n", Type: "t", Location: "l", IPAddress: strPtr("999.1.1.1")}},
		{"slash in id", NewDevice{DeviceID: "a/b", Name: "n", Type: "t", Location: "l"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, repo := newTestRegistry()
			_, err := reg.CreateDevice(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidDevice) {
				t.Errorf("CreateDevice() error = %v, want ErrInvalidDevice", err)
			}
			if len(repo.devices) != 0 {
				t.Error("invalid device was persisted")
			}
		})
	}
}

func TestRegistry_CreateDevice_Duplicate(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()
	in := NewDevice{DeviceID: "dup", Name: "n", Type: "t", Location: "l"}

	if _, err := reg.CreateDevice(ctx, in); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if _, err := reg.CreateDevice(ctx, in); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("second CreateDevice() = %v, want ErrDeviceExists", err)
	}
}

func TestRegistry_UpdateDevice(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	if _, err := reg.CreateDevice(ctx, NewDevice{DeviceID: "u1", Name: "Old", Type: "t", Location: "l"}); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := reg.UpdateDevice(ctx, "u1", Update{Name: strPtr("New")})
	if err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	if got.Name != "New" {
		t.Errorf("Name = %q, want New", got.Name)
	}

	if _, err := reg.UpdateDevice(ctx, "u1", Update{Name: strPtr("  ")}); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("blanking name = %v, want ErrInvalidDevice", err)
	}
	if _, err := reg.UpdateDevice(ctx, "u1", Update{}); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("empty update = %v, want ErrInvalidDevice", err)
	}
	if _, err := reg.UpdateDevice(ctx, "missing", Update{Name: strPtr("x")}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("update missing = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_DeleteAndExists(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	if _, err := reg.CreateDevice(ctx, NewDevice{DeviceID: "x1", Name: "n", Type: "t", Location: "l"}); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	ok, err := reg.Exists(ctx, "x1")
	if err != nil || !ok {
		t.Fatalf("Exists(x1) = %v, %v; want true, nil", ok, err)
	}

	if err := reg.DeleteDevice(ctx, "x1"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}

	ok, err = reg.Exists(ctx, "x1")
	if err != nil || ok {
		t.Errorf("Exists(x1) after delete = %v, %v; want false, nil", ok, err)
	}
	if err := reg.DeleteDevice(ctx, "x1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("DeleteDevice() twice = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_ListAndCount(t *testing.T) {
	reg, repo := newTestRegistry()
	ctx := context.Background()

	for _, name := range []string{"Zulu", "Alpha"} {
		if _, err := reg.CreateDevice(ctx, NewDevice{DeviceID: name, Name: name, Type: "t", Location: "l"}); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	devices, err := reg.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 || devices[0].Name != "Alpha" {
		t.Errorf("ListDevices() = %+v", devices)
	}

	ids, err := reg.DeviceIDs(ctx)
	if err != nil || len(ids) != 2 || ids[0] != "Alpha" {
		t.Errorf("DeviceIDs() = %v, %v", ids, err)
	}

	n, err := reg.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count() = %d, %v; want 2", n, err)
	}

	repo.listErr = errors.New("disk on fire")
	if _, err := reg.Count(ctx); err == nil {
		t.Error("Count() should surface repository errors")
	}
}

func TestRegistry_WithSQLite(t *testing.T) {
	reg := NewRegistry(NewSQLiteRepository(setupTestDB(t)))
	ctx := context.Background()

	created, err := reg.CreateDevice(ctx, NewDevice{DeviceID: "sql-01", Name: "SQL", Type: "t", Location: "l"})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := reg.GetDevice(ctx, "sql-01")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != created.Name || !got.Active {
		t.Errorf("GetDevice() = %+v", got)
	}
}
