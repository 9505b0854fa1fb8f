package reading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines reading persistence. Readings are append-only.
type Repository interface {
	// Insert stores r. ID and timestamps must already be set.
	Insert(ctx context.Context, r *Reading) error

	// Latest returns the most recent reading for a device, or ErrNoReadings.
	Latest(ctx context.Context, deviceID string) (*Reading, error)

	// History returns up to q.Limit readings, newest first.
	History(ctx context.Context, deviceID string, q Query) ([]Reading, error)
}

// timeLayout is fixed width so text comparison in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000Z"

const readingColumns = `id, device_id, temperature, humidity, water_level, light_intensity,
	motion_detected, battery_level, timestamp, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores a reading.
func (r *SQLiteRepository) Insert(ctx context.Context, rd *Reading) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_readings (`+readingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.ID,
		rd.DeviceID,
		nullableFloat(rd.Temperature),
		nullableFloat(rd.Humidity),
		nullableFloat(rd.WaterLevel),
		nullableFloat(rd.LightIntensity),
		nullableBool(rd.MotionDetected),
		nullableFloat(rd.BatteryLevel),
		formatTime(rd.Timestamp),
		formatTime(rd.CreatedAt),
		formatTime(rd.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// Latest returns the newest reading for deviceID.
func (r *SQLiteRepository) Latest(ctx context.Context, deviceID string) (*Reading, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+readingColumns+`
		FROM device_readings
		WHERE device_id = ?
		ORDER BY timestamp DESC, created_at DESC
		LIMIT 1`, deviceID)

	rd, err := scanReadingRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoReadings
		}
		return nil, fmt.Errorf("querying latest reading: %w", err)
	}
	return rd, nil
}

// History returns readings for deviceID, newest first.
func (r *SQLiteRepository) History(ctx context.Context, deviceID string, q Query) ([]Reading, error) {
	q = q.normalized()

	var where strings.Builder
	where.WriteString("device_id = ?")
	args := []any{deviceID}
	if q.Start != nil {
		where.WriteString(" AND timestamp >= ?")
		args = append(args, formatTime(*q.Start))
	}
	if q.End != nil {
		where.WriteString(" AND timestamp <= ?")
		args = append(args, formatTime(*q.End))
	}
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM device_readings
		WHERE `+where.String()+`
		ORDER BY timestamp DESC, created_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reading history: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		rd, err := scanReadingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		readings = append(readings, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReadingRow(scanner rowScanner) (*Reading, error) {
	var rd Reading
	var temperature, humidity, waterLevel, lightIntensity, batteryLevel sql.NullFloat64
	var motion sql.NullInt64
	var timestamp, createdAt, updatedAt string

	err := scanner.Scan(
		&rd.ID,
		&rd.DeviceID,
		&temperature,
		&humidity,
		&waterLevel,
		&lightIntensity,
		&motion,
		&batteryLevel,
		&timestamp,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rd.Temperature = floatPtr(temperature)
	rd.Humidity = floatPtr(humidity)
	rd.WaterLevel = floatPtr(waterLevel)
	rd.LightIntensity = floatPtr(lightIntensity)
	rd.BatteryLevel = floatPtr(batteryLevel)
	if motion.Valid {
		v := motion.Int64 != 0
		rd.MotionDetected = &v
	}

	if rd.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	if rd.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rd.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &rd, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullableBool(v *bool) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	if *v {
		return sql.NullInt64{Int64: 1, Valid: true}
	}
	return sql.NullInt64{Int64: 0, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
