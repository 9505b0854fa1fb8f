package main

import (
	"time"

	"github.com/nerrad567/sensorhub-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorhub-core/internal/metrics"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// Sink labels for metrics.
const (
	sinkInflux = "influxdb"
	sinkMQTT   = "mqtt"
)

// pointWriter is the part of influxdb.Client the mirror needs.
type pointWriter interface {
	WriteReading(deviceID string, fields map[string]interface{}, timestamp time.Time)
}

// influxSink mirrors stored readings into InfluxDB. Writes are batched by
// the client; failures surface through its error callback.
type influxSink struct {
	writer pointWriter
}

func (s influxSink) ReadingRecorded(r reading.Reading) {
	fields := r.Fields()
	if len(fields) == 0 {
		return
	}
	s.writer.WriteReading(r.DeviceID, fields, r.Timestamp)
}

// jsonPublisher is the part of mqtt.Client the republisher needs.
type jsonPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// mqttSink republishes stored readings on sensorhub/readings/{deviceId},
// retained, so late subscribers see the newest value. Publishing runs off
// the caller's goroutine.
type mqttSink struct {
	pub    jsonPublisher
	logger warnLogger
	// wait, when set, is called after each publish. Tests use it to join.
	wait func()
}

func newMQTTSink(pub jsonPublisher, logger warnLogger) *mqttSink {
	return &mqttSink{pub: pub, logger: logger}
}

func (s *mqttSink) ReadingRecorded(r reading.Reading) {
	go func() {
		if s.wait != nil {
			defer s.wait()
		}
		if err := s.pub.PublishJSON(mqtt.Topics{}.Readings(r.DeviceID), r, true); err != nil {
			metrics.IncSinkError(sinkMQTT)
			s.logger.Warn("republishing reading failed", "device_id", r.DeviceID, "error", err)
		}
	}()
}
