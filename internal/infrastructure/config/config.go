package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"
)

// Server modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// EnvPrefix is the prefix for all sensorhub environment overrides.
const EnvPrefix = "SENSORHUB"

// DotEnvFile is the dotenv file read by Load when it exists.
var DotEnvFile = ".env"

// Config is the root configuration structure for sensorhub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	MongoDB   MongoDBConfig   `yaml:"mongodb"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig controls how the HTTP server presents itself.
type ServerConfig struct {
	// Mode is "development" or "production". Production serves StaticDir.
	Mode      string `yaml:"mode"`
	StaticDir string `yaml:"static_dir"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MongoDBConfig contains document store connection settings.
type MongoDBConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	ConnectTimeout int    `yaml:"connect_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DashboardConfig contains settings for the polling dashboard client.
type DashboardConfig struct {
	APIURL         string `yaml:"api_url"`
	PollInterval   int    `yaml:"poll_interval"`
	HistoryLimit   int    `yaml:"history_limit"`
	RequestTimeout int    `yaml:"request_timeout"`
}

// Load builds the configuration.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (skipped when path is empty)
//  3. Variables from DotEnvFile, without replacing variables already set
//  4. Legacy variables: PORT, MONGO_URI, NODE_ENV
//  5. SENSORHUB_* variables
//
// For example: SENSORHUB_DATABASE_PATH, SENSORHUB_API_PORT.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for none
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied but without reading any file. Used by the dashboard client.
func Default() (*Config, error) {
	return Load("")
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Mode:      ModeDevelopment,
			StaticDir: "client/build",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
		},
		Database: DatabaseConfig{
			Path:        "./data/sensorhub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MongoDB: MongoDBConfig{
			Database:       "sensorhub",
			ConnectTimeout: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sensorhub-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Dashboard: DashboardConfig{
			APIURL:         "http://localhost:5000/api",
			PollInterval:   5,
			HistoryLimit:   50,
			RequestTimeout: 10,
		},
	}
}

// loadDotEnv reads a dotenv file into the process environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// legacyEnv holds the unprefixed variables the service has always honoured.
type legacyEnv struct {
	Port     *int    `envconfig:"PORT"`
	MongoURI *string `envconfig:"MONGO_URI"`
	NodeEnv  *string `envconfig:"NODE_ENV"`
}

// envOverrides holds SENSORHUB_* variables. Nil fields were not set.
type envOverrides struct {
	Mode           *string `envconfig:"MODE"`
	StaticDir      *string `envconfig:"STATIC_DIR"`
	APIHost        *string `envconfig:"API_HOST"`
	APIPort        *int    `envconfig:"API_PORT"`
	CORSOrigins    *string `envconfig:"CORS_ORIGINS"`
	StorageBackend *string `envconfig:"STORAGE_BACKEND"`
	DatabasePath   *string `envconfig:"DATABASE_PATH"`
	MongoURI       *string `envconfig:"MONGODB_URI"`
	MongoDatabase  *string `envconfig:"MONGODB_DATABASE"`
	MQTTEnabled    *bool   `envconfig:"MQTT_ENABLED"`
	MQTTHost       *string `envconfig:"MQTT_HOST"`
	MQTTPort       *int    `envconfig:"MQTT_PORT"`
	MQTTUsername   *string `envconfig:"MQTT_USERNAME"`
	MQTTPassword   *string `envconfig:"MQTT_PASSWORD"`
	InfluxEnabled  *bool   `envconfig:"INFLUXDB_ENABLED"`
	InfluxURL      *string `envconfig:"INFLUXDB_URL"`
	InfluxToken    *string `envconfig:"INFLUXDB_TOKEN"`
	LogLevel       *string `envconfig:"LOG_LEVEL"`
	LogFormat      *string `envconfig:"LOG_FORMAT"`
	DashboardURL   *string `envconfig:"DASHBOARD_API_URL"`
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	var legacy legacyEnv
	if err := envconfig.Process("", &legacy); err != nil {
		return err
	}
	if legacy.Port != nil {
		cfg.API.Port = *legacy.Port
	}
	if legacy.MongoURI != nil && *legacy.MongoURI != "" {
		cfg.MongoDB.URI = *legacy.MongoURI
		cfg.Storage.Backend = BackendMongoDB
	}
	if legacy.NodeEnv != nil && *legacy.NodeEnv != "" {
		cfg.Server.Mode = strings.ToLower(*legacy.NodeEnv)
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}

	setString(&cfg.Server.Mode, env.Mode)
	setString(&cfg.Server.StaticDir, env.StaticDir)
	setString(&cfg.API.Host, env.APIHost)
	if env.APIPort != nil {
		cfg.API.Port = *env.APIPort
	}
	if env.CORSOrigins != nil {
		cfg.API.CORS.AllowedOrigins = splitList(*env.CORSOrigins)
	}
	setString(&cfg.Storage.Backend, env.StorageBackend)
	setString(&cfg.Database.Path, env.DatabasePath)
	if env.MongoURI != nil && *env.MongoURI != "" {
		cfg.MongoDB.URI = *env.MongoURI
		if env.StorageBackend == nil {
			cfg.Storage.Backend = BackendMongoDB
		}
	}
	setString(&cfg.MongoDB.Database, env.MongoDatabase)
	if env.MQTTEnabled != nil {
		cfg.MQTT.Enabled = *env.MQTTEnabled
	}
	setString(&cfg.MQTT.Broker.Host, env.MQTTHost)
	if env.MQTTPort != nil {
		cfg.MQTT.Broker.Port = *env.MQTTPort
	}
	setString(&cfg.MQTT.Auth.Username, env.MQTTUsername)
	setString(&cfg.MQTT.Auth.Password, env.MQTTPassword)
	if env.InfluxEnabled != nil {
		cfg.InfluxDB.Enabled = *env.InfluxEnabled
	}
	setString(&cfg.InfluxDB.URL, env.InfluxURL)
	setString(&cfg.InfluxDB.Token, env.InfluxToken)
	setString(&cfg.Logging.Level, env.LogLevel)
	setString(&cfg.Logging.Format, env.LogFormat)
	setString(&cfg.Dashboard.APIURL, env.DashboardURL)

	return nil
}

// setString copies v into dst when v was set to a non-empty value.
func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Mode {
	case ModeDevelopment:
	case ModeProduction:
		if c.Server.StaticDir == "" {
			errs = append(errs, "server.static_dir is required in production mode")
		}
	default:
		errs = append(errs, "server.mode must be development or production")
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required")
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" {
			errs = append(errs, "mongodb.uri is required (set MONGO_URI)")
		}
		if c.MongoDB.Database == "" {
			errs = append(errs, "mongodb.database is required")
		}
	default:
		errs = append(errs, "storage.backend must be sqlite or mongodb")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if _, err := url.ParseRequestURI(c.Dashboard.APIURL); err != nil {
		errs = append(errs, "dashboard.api_url must be an absolute URL")
	}
	if c.Dashboard.PollInterval <= 0 {
		errs = append(errs, "dashboard.poll_interval must be positive")
	}
	if c.Dashboard.HistoryLimit <= 0 {
		errs = append(errs, "dashboard.history_limit must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsProduction reports whether static assets should be served.
func (s ServerConfig) IsProduction() bool {
	return s.Mode == ModeProduction
}

// GetReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

// GetPollInterval returns the dashboard poll interval as a Duration.
func (d DashboardConfig) GetPollInterval() time.Duration {
	return time.Duration(d.PollInterval) * time.Second
}

// GetRequestTimeout returns the dashboard per-request timeout as a Duration.
func (d DashboardConfig) GetRequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeout) * time.Second
}
