package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// readingMeasurement is the measurement name for mirrored sensor readings.
const readingMeasurement = "sensor_readings"

// WriteReading mirrors one sensor reading. The device id becomes a tag,
// each present sensor value a field. Readings with no fields are skipped
// because line protocol requires at least one, and so are writes after
// Close.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteReading("greenhouse-01", map[string]interface{}{
//	    "temperature": 21.5,
//	    "humidity":    48.0,
//	}, reading.Timestamp)
func (c *Client) WriteReading(deviceID string, fields map[string]interface{}, timestamp time.Time) {
	if len(fields) == 0 || !c.IsConnected() {
		return
	}
	c.mirror.WritePoint(readingPoint(deviceID, fields, timestamp))
}

func readingPoint(deviceID string, fields map[string]interface{}, timestamp time.Time) *write.Point {
	return write.NewPoint(readingMeasurement, map[string]string{"device_id": deviceID}, fields, timestamp.UTC())
}
