// Package logging provides structured logging for sensorhub.
//
// This package wraps Go's standard log/slog package so every binary logs
// with the same handler setup and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 5000)
//	logger.Component("ingest").Error("decode failed", "error", err)
//
// Never log secrets: MQTT passwords, InfluxDB tokens, MongoDB URIs with
// credentials.
package logging
