package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nerrad567/sensorhub-core/internal/infrastructure/config"
)

// Default timeouts for MongoDB operations.
const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPingTimeout       = 5 * time.Second
	defaultDisconnectTimeout = 5 * time.Second

	defaultDatabase = "sensorhub"
)

// Client wraps a mongo.Client bound to the sensorhub database.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client *mongo.Client
	db     *mongo.Database

	connected bool
	mu        sync.RWMutex
}

// Connect dials the server named by cfg.URI and verifies it with a ping.
//
// Parameters:
//   - ctx: Context bounding the connection attempt
//   - cfg: MongoDB configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrNoURI, or ErrConnectionFailed wrapping the driver error
func Connect(ctx context.Context, cfg config.MongoDBConfig) (*Client, error) {
	if cfg.URI == "" {
		return nil, ErrNoURI
	}

	timeout := defaultConnectTimeout
	if cfg.ConnectTimeout > 0 {
		timeout = time.Duration(cfg.ConnectTimeout) * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background()) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}

	name := cfg.Database
	if name == "" {
		name = defaultDatabase
	}

	return &Client{
		client:    client,
		db:        client.Database(name),
		connected: true,
	}, nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Collection is shorthand for Database().Collection(name).
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Close disconnects from the server. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil || !c.connected {
		return nil
	}
	c.connected = false

	ctx, cancel := context.WithTimeout(context.Background(), defaultDisconnectTimeout)
	defer cancel()

	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("closing mongodb: %w", err)
	}
	return nil
}

// HealthCheck pings the primary.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := c.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// IsConnected returns false once Close has been called.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
