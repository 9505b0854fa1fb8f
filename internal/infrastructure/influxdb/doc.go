// Package influxdb mirrors sensor readings into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health monitoring. The
// primary store stays authoritative; InfluxDB is an optional copy for
// dashboards that want time-series queries.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("greenhouse-01", map[string]interface{}{"temperature": 21.5}, time.Now())
//
// # Error Handling
//
// Writes never block or return errors; batch failures are delivered to the
// callback registered with SetOnError. Connection and health check errors
// are returned directly.
package influxdb
