// Sensorhub - IoT sensor data service
//
// This is the main entry point for the sensorhub server. It stores device
// metadata and sensor readings, serves the REST API (and, in production,
// the dashboard build), and optionally ingests readings over MQTT and
// mirrors them to InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/sensorhub-core/migrations"

	"github.com/nerrad567/sensorhub-core/internal/api"
	"github.com/nerrad567/sensorhub-core/internal/device"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/config"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/database"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/logging"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/mongodb"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorhub-core/internal/ingest"
	"github.com/nerrad567/sensorhub-core/internal/metrics"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnvVar names the YAML config file. Without it only defaults,
// .env and environment variables apply.
const configEnvVar = "SENSORHUB_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// Shutdown happens through the defer chain in reverse start order.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting sensorhub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := os.Getenv(configEnvVar)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"mode", cfg.Server.Mode,
		"storage", cfg.Storage.Backend,
	)

	metrics.Init()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing storage", "backend", cfg.Storage.Backend)
		if closeErr := store.close(); closeErr != nil {
			log.Error("error closing storage", "error", closeErr)
		}
	}()

	registry := device.NewRegistry(store.devices)
	registry.SetLogger(log.Component("device"))

	readings := reading.NewService(store.readings, registry)
	readings.SetLogger(log.Component("reading"))
	readings.AddSink(metrics.ReadingSink{})

	checks := map[string]api.HealthChecker{
		cfg.Storage.Backend: store.health,
	}

	if cfg.InfluxDB.Enabled {
		if closeInflux := startInflux(ctx, cfg, log, readings, checks); closeInflux != nil {
			defer closeInflux()
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.MQTT.Enabled {
		if closeMQTT := startMQTT(cfg, log, readings, checks); closeMQTT != nil {
			defer closeMQTT()
		}
	} else {
		log.Info("MQTT disabled")
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Server:   cfg.Server,
		Logger:   log.Component("api"),
		Devices:  registry,
		Readings: readings,
		Checks:   checks,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// startInflux connects the reading mirror. InfluxDB is optional: when it
// cannot be reached the service runs without it and nil is returned.
// Otherwise the returned func closes the client.
func startInflux(ctx context.Context, cfg *config.Config, log *logging.Logger, readings *reading.Service, checks map[string]api.HealthChecker) func() {
	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		log.Error("InfluxDB unavailable, continuing without reading mirror", "error", err)
		return nil
	}
	influxClient.SetOnError(func(err error) {
		metrics.IncSinkError(sinkInflux)
		log.Error("InfluxDB write error", "error", err)
	})
	readings.AddSink(influxSink{writer: influxClient})
	checks["influxdb"] = influxClient
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)

	return func() {
		log.Info("closing InfluxDB connection")
		if closeErr := influxClient.Close(); closeErr != nil {
			log.Error("error closing InfluxDB", "error", closeErr)
		}
	}
}

// startMQTT connects to the broker, republishes stored readings and starts
// the ingest subscription. Like InfluxDB it is optional; nil means the
// service continues without it.
func startMQTT(cfg *config.Config, log *logging.Logger, readings *reading.Service, checks map[string]api.HealthChecker) func() {
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Error("MQTT unavailable, continuing without ingest", "error", err)
		return nil
	}
	mqttLog := log.Component("mqtt")
	mqttClient.SetLogger(mqttLog)
	mqttClient.SetOnConnect(func() {
		mqttLog.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT disconnected", "error", err)
	})
	checks["mqtt"] = mqttClient
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	readings.AddSink(newMQTTSink(mqttClient, mqttLog))

	closeClient := func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}

	ingestor, err := ingest.New(ingest.Options{
		Subscriber: mqttClient,
		Recorder:   readings,
		Logger:     log.Component("ingest"),
		QoS:        byte(cfg.MQTT.QoS),
	})
	if err == nil {
		err = ingestor.Start()
	}
	if err != nil {
		log.Error("MQTT ingest not started", "error", err)
		return closeClient
	}

	return func() {
		log.Info("stopping ingestor")
		ingestor.Stop()
		closeClient()
	}
}

// storage is the selected persistence backend.
type storage struct {
	devices  device.Repository
	readings reading.Repository
	health   api.HealthChecker
	close    func() error
}

// openStorage connects the configured backend and prepares its schema
// (migrations for SQLite, indexes for MongoDB).
func openStorage(ctx context.Context, cfg *config.Config, log *logging.Logger) (*storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongoDB:
		client, err := mongodb.Connect(ctx, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to MongoDB: %w", err)
		}
		devices := device.NewMongoRepository(client.Database())
		readings := reading.NewMongoRepository(client.Database())
		if err := devices.EnsureIndexes(ctx); err != nil {
			client.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("creating device indexes: %w", err)
		}
		if err := readings.EnsureIndexes(ctx); err != nil {
			client.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("creating reading indexes: %w", err)
		}
		log.Info("MongoDB connected", "database", cfg.MongoDB.Database)
		return &storage{devices: devices, readings: readings, health: client, close: client.Close}, nil

	default:
		db, err := database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", cfg.Database.Path)
		return &storage{
			devices:  device.NewSQLiteRepository(db.DB),
			readings: reading.NewSQLiteRepository(db.DB),
			health:   db,
			close:    db.Close,
		}, nil
	}
}
