// Package ingest stores sensor readings received over MQTT.
//
// Sensors publish a reading document to sensorhub/data/{deviceId}:
//
//	{"temperature": 21.4, "humidity": 48, "timestamp": "2026-03-01T12:00:00Z"}
//
// The topic names the device. Fields follow the POST /api/data body; a
// missing timestamp means "now".
package ingest
