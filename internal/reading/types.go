package reading

import "time"

// History limits.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// Reading is one timestamped sample from a device. Sensor values are
// pointers: a sensor that did not report stays absent rather than zero.
type Reading struct {
	ID       string `json:"id" bson:"_id"`
	DeviceID string `json:"deviceId" bson:"deviceId"`

	Temperature    *float64 `json:"temperature,omitempty" bson:"temperature,omitempty"`       // °C
	Humidity       *float64 `json:"humidity,omitempty" bson:"humidity,omitempty"`             // %
	WaterLevel     *float64 `json:"waterLevel,omitempty" bson:"waterLevel,omitempty"`         // %
	LightIntensity *float64 `json:"lightIntensity,omitempty" bson:"lightIntensity,omitempty"` // lux
	MotionDetected *bool    `json:"motionDetected,omitempty" bson:"motionDetected,omitempty"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty" bson:"batteryLevel,omitempty"` // %

	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Fields returns the reported sensor values keyed by snake_case name,
// omitting absent ones.
func (r *Reading) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, 6)
	addFloat := func(name string, v *float64) {
		if v != nil {
			fields[name] = *v
		}
	}
	addFloat("temperature", r.Temperature)
	addFloat("humidity", r.Humidity)
	addFloat("water_level", r.WaterLevel)
	addFloat("light_intensity", r.LightIntensity)
	addFloat("battery_level", r.BatteryLevel)
	if r.MotionDetected != nil {
		fields["motion_detected"] = *r.MotionDetected
	}
	return fields
}

// Query bounds a history lookup. Start and End are optional and inclusive.
type Query struct {
	Limit int
	Start *time.Time
	End   *time.Time
}

// normalized returns q with the default limit applied and the limit clamped.
// Bounds are snapped to the millisecond precision timestamps are stored at:
// Start rounds up and End rounds down, so the window never widens.
func (q Query) normalized() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	if q.Start != nil {
		start := q.Start.UTC()
		if down := start.Truncate(time.Millisecond); !down.Equal(start) {
			start = down.Add(time.Millisecond)
		}
		q.Start = &start
	}
	if q.End != nil {
		end := q.End.UTC().Truncate(time.Millisecond)
		q.End = &end
	}
	return q
}
