// Package config handles loading and validating sensorhub configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Reading a .env file into the environment
//   - Overriding with environment variables (SENSORHUB_*, plus PORT,
//     MONGO_URI and NODE_ENV)
//   - Validation of required fields
//
// Security Considerations:
//   - Credentials (MQTT password, InfluxDB token, MongoDB URI) should be set
//     via environment variables rather than committed config files
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
