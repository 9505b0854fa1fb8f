package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/sensorhub-core/internal/device"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorhub-core/internal/metrics"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// recordTimeout bounds the store write for a single message.
const recordTimeout = 5 * time.Second

// defaultQoS is used for the data subscription.
const defaultQoS byte = 1

var (
	// ErrBadTopic is returned for messages outside sensorhub/data/{deviceId}.
	ErrBadTopic = errors.New("ingest: unexpected topic")

	// ErrBadPayload is returned when the payload is not a reading document.
	ErrBadPayload = errors.New("ingest: malformed payload")

	// ErrDeviceMismatch is returned when the payload names another device.
	ErrDeviceMismatch = errors.New("ingest: payload deviceId does not match topic")
)

// Subscriber is the MQTT surface the ingestor needs. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Recorder stores readings. *reading.Service satisfies it.
type Recorder interface {
	Record(ctx context.Context, r *reading.Reading) (*reading.Reading, error)
}

// Logger defines the logging interface used by the Ingestor.
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

// Ingestor stores readings that sensors publish on sensorhub/data/{deviceId}.
//
// Messages go through the same Recorder as POST /api/data, so validation,
// device checks and sinks behave identically. A rejected message is logged
// and dropped; MQTT has no channel to report it back to the sensor.
type Ingestor struct {
	sub      Subscriber
	recorder Recorder
	logger   Logger
	qos      byte

	// ctx is cancelled on Stop so in-flight writes are abandoned.
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Options configures an Ingestor.
type Options struct {
	Subscriber Subscriber
	Recorder   Recorder
	Logger     Logger

	// QoS for the data subscription. Zero means 1.
	QoS byte
}

// New creates an Ingestor. Call Start to subscribe.
func New(opts Options) (*Ingestor, error) {
	if opts.Subscriber == nil {
		return nil, errors.New("ingest: subscriber is required")
	}
	if opts.Recorder == nil {
		return nil, errors.New("ingest: recorder is required")
	}

	ing := &Ingestor{
		sub:      opts.Subscriber,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		qos:      opts.QoS,
	}
	if ing.logger == nil {
		ing.logger = noopLogger{}
	}
	if ing.qos == 0 {
		ing.qos = defaultQoS
	}
	ing.ctx, ing.cancel = context.WithCancel(context.Background())
	return ing, nil
}

// Start subscribes to the data topic of every device.
func (i *Ingestor) Start() error {
	topic := mqtt.Topics{}.AllData()
	if err := i.sub.Subscribe(topic, i.qos, i.handleMessage); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	i.logger.Info("subscribed to sensor data", "topic", topic)
	return nil
}

// Stop unsubscribes and cancels in-flight writes. Safe to call more than once.
func (i *Ingestor) Stop() {
	i.stopOnce.Do(func() {
		i.cancel()
		if err := i.sub.Unsubscribe(mqtt.Topics{}.AllData()); err != nil {
			i.logger.Warn("unsubscribe failed", "error", err)
		}
	})
}

// handleMessage is the MQTT callback. Failures are logged here, so it
// always returns nil.
func (i *Ingestor) handleMessage(topic string, payload []byte) error {
	start := time.Now()

	r, err := decodeMessage(topic, payload)
	if err != nil {
		metrics.ObserveIngest(metrics.ResultRejected, time.Since(start))
		i.logger.Warn("rejected sensor message", "topic", topic, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(i.ctx, recordTimeout)
	defer cancel()

	stored, err := i.recorder.Record(ctx, r)
	switch {
	case err == nil:
		metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
		i.logger.Debug("stored sensor reading", "device_id", stored.DeviceID, "reading_id", stored.ID)
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, reading.ErrInvalidReading):
		metrics.ObserveIngest(metrics.ResultRejected, time.Since(start))
		i.logger.Warn("rejected sensor reading", "device_id", r.DeviceID, "error", err)
	default:
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		i.logger.Error("storing sensor reading failed", "device_id", r.DeviceID, "error", err)
	}
	return nil
}

// decodeMessage turns an MQTT message into a reading for the topic's device.
// The payload may omit deviceId; if present it must match the topic.
func decodeMessage(topic string, payload []byte) (*reading.Reading, error) {
	deviceID, ok := mqtt.ParseDataTopic(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	var r reading.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}

	payloadID := strings.TrimSpace(r.DeviceID)
	if payloadID != "" && payloadID != deviceID {
		return nil, fmt.Errorf("%w: %q vs %q", ErrDeviceMismatch, payloadID, deviceID)
	}

	// Server-assigned fields are never taken from the wire.
	return &reading.Reading{
		DeviceID:       deviceID,
		Temperature:    r.Temperature,
		Humidity:       r.Humidity,
		WaterLevel:     r.WaterLevel,
		LightIntensity: r.LightIntensity,
		MotionDetected: r.MotionDetected,
		BatteryLevel:   r.BatteryLevel,
		Timestamp:      r.Timestamp,
	}, nil
}
