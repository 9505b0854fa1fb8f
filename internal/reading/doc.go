// Package reading stores and queries sensor readings.
//
// Readings are append-only samples tied to a device by deviceId. The
// Service validates incoming readings, checks the device is registered,
// assigns an ID and timestamps, persists the reading and then notifies
// registered sinks (InfluxDB mirror, MQTT republish, metrics).
//
// Readings are not removed when their device is deleted.
//
// Two Repository implementations exist: SQLiteRepository (default) and
// MongoRepository.
package reading
