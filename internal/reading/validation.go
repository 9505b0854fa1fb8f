package reading

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks a reading before it is stored.
//
// Humidity, water level and battery level are percentages (0-100); light
// intensity may not be negative. Temperature is unbounded.
func Validate(r *Reading) error {
	if r == nil {
		return ErrInvalidReading
	}
	if strings.TrimSpace(r.DeviceID) == "" {
		return fmt.Errorf("%w: deviceId is required", ErrInvalidReading)
	}

	for _, f := range []struct {
		name     string
		v        *float64
		min, max float64
	}{
		{"temperature", r.Temperature, math.Inf(-1), math.Inf(1)},
		{"humidity", r.Humidity, 0, 100},
		{"waterLevel", r.WaterLevel, 0, 100},
		{"lightIntensity", r.LightIntensity, 0, math.Inf(1)},
		{"batteryLevel", r.BatteryLevel, 0, 100},
	} {
		if f.v == nil {
			continue
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidReading, f.name)
		}
		if *f.v < f.min || *f.v > f.max {
			return fmt.Errorf("%w: %s %v out of range", ErrInvalidReading, f.name, *f.v)
		}
	}
	return nil
}
