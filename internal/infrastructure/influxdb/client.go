package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/sensorhub-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client is the write side of the reading mirror. Readings are queued on
// a non-blocking batched WriteAPI bound to a single org/bucket. Nothing
// reads back through it; the primary store remains the source of truth.
//
// All methods are safe for concurrent use.
type Client struct {
	client influxdb2.Client
	mirror api.WriteAPI
	bucket string

	mu      sync.RWMutex
	open    bool
	onError func(err error)
}

// Connect pings the server and binds the mirror to cfg.Org/cfg.Bucket.
// It returns ErrDisabled when mirroring is switched off, and wraps
// ErrConnectionFailed when the server is unreachable or unhealthy.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, batchOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := ping(pingCtx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client: client,
		mirror: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket: cfg.Bucket,
		open:   true,
	}
	go c.forwardErrors(c.mirror.Errors())

	return c, nil
}

// batchOptions maps the mirror's batching config onto client options,
// falling back to defaults for unset or negative values.
func batchOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize) // #nosec G115 -- checked positive
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive duration
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// forwardErrors hands failed batch writes to the registered callback
// until the WriteAPI closes its error channel.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		report := c.onError
		c.mu.RUnlock()
		if report != nil {
			report(err)
		}
	}
}

// SetOnError registers the callback for failed batch writes. Mirror writes
// never return errors themselves, so this is the only place they surface.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// HealthCheck pings the server. It reports ErrNotConnected after Close.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(checkCtx, c.client); err != nil {
		return fmt.Errorf("influxdb mirror %s: %w", c.bucket, err)
	}
	return nil
}

// IsConnected reports whether the mirror is still accepting readings.
// It does not ping; use HealthCheck for that.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Flush blocks until queued readings are written. No-op after Close.
func (c *Client) Flush() {
	if c.mirror == nil || !c.IsConnected() {
		return
	}
	c.mirror.Flush()
}

// Close stops accepting readings, drains the queue and releases the
// client. Calling it more than once is harmless.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()
	if !wasOpen {
		return nil
	}

	c.mirror.Flush()
	c.client.Close()
	return nil
}
