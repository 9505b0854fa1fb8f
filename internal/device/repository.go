package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines device persistence. Implementations: SQLiteRepository
// and MongoRepository.
type Repository interface {
	// List returns all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// ListIDs returns every deviceId, ordered by device name.
	ListIDs(ctx context.Context) ([]string, error)

	// GetByID returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, deviceID string) (*Device, error)

	// Create returns ErrDeviceExists if the deviceId is taken.
	// It sets CreatedAt and UpdatedAt on d.
	Create(ctx context.Context, d *Device) error

	// Update applies u and returns the stored result.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, deviceID string, u Update) (*Device, error)

	// Delete returns ErrDeviceNotFound if the device does not exist.
	// Readings for the device are left in place.
	Delete(ctx context.Context, deviceID string) error
}

const deviceColumns = `device_id, name, type, location, active, install_date,
	last_maintenance, ip_address, firmware_version, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY name, device_id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// ListIDs returns every deviceId, ordered by device name.
func (r *SQLiteRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT device_id FROM devices ORDER BY name, device_id`)
	if err != nil {
		return nil, fmt.Errorf("querying device ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning device id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device ids: %w", err)
	}
	return ids, nil
}

// GetByID retrieves a device by its deviceId.
func (r *SQLiteRepository) GetByID(ctx context.Context, deviceID string) (*Device, error) {
	return getDevice(ctx, r.db, deviceID)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DeviceID,
		d.Name,
		d.Type,
		d.Location,
		boolToInt(d.Active),
		formatTime(d.InstallDate),
		formatTime(d.LastMaintenance),
		nullableString(d.IPAddress),
		nullableString(d.FirmwareVersion),
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update applies u inside a transaction and returns the stored result.
func (r *SQLiteRepository) Update(ctx context.Context, deviceID string, u Update) (*Device, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	d, err := getDevice(ctx, tx, deviceID)
	if err != nil {
		return nil, err
	}

	u.Apply(d)
	d.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, type = ?, location = ?, active = ?, install_date = ?,
			last_maintenance = ?, ip_address = ?, firmware_version = ?, updated_at = ?
		WHERE device_id = ?`,
		d.Name,
		d.Type,
		d.Location,
		boolToInt(d.Active),
		formatTime(d.InstallDate),
		formatTime(d.LastMaintenance),
		nullableString(d.IPAddress),
		nullableString(d.FirmwareVersion),
		formatTime(d.UpdatedAt),
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing device update: %w", err)
	}
	return d, nil
}

// Delete removes a device by deviceId.
func (r *SQLiteRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE device_id = ?", deviceID)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDevice(ctx context.Context, q queryRower, deviceID string) (*Device, error) {
	row := q.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, deviceID)
	d, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var active int
	var installDate, lastMaintenance, createdAt, updatedAt string
	var ipAddress, firmwareVersion sql.NullString

	err := scanner.Scan(
		&d.DeviceID,
		&d.Name,
		&d.Type,
		&d.Location,
		&active,
		&installDate,
		&lastMaintenance,
		&ipAddress,
		&firmwareVersion,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Active = active != 0
	if ipAddress.Valid {
		d.IPAddress = &ipAddress.String
	}
	if firmwareVersion.Valid {
		d.FirmwareVersion = &firmwareVersion.String
	}

	for _, ts := range []struct {
		name string
		raw  string
		dst  *time.Time
	}{
		{"install_date", installDate, &d.InstallDate},
		{"last_maintenance", lastMaintenance, &d.LastMaintenance},
		{"created_at", createdAt, &d.CreatedAt},
		{"updated_at", updatedAt, &d.UpdatedAt},
	} {
		t, err := time.Parse(time.RFC3339Nano, ts.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ts.name, err)
		}
		*ts.dst = t
	}

	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
