// Package api implements the sensorhub HTTP REST API.
//
// Endpoints:
//
//	GET    /api/devices                    list devices (sorted by name)
//	POST   /api/devices                    create a device
//	GET    /api/devices/{id}               fetch a device
//	PUT    /api/devices/{id}               update a device
//	DELETE /api/devices/{id}               delete a device (readings are kept)
//	POST   /api/data                       store a reading
//	GET    /api/data/latest                newest reading per device
//	GET    /api/data/latest/{deviceId}     newest reading of one device
//	GET    /api/data/history/{deviceId}    readings, newest first
//	GET    /health                         dependency status
//	GET    /metrics                        Prometheus exposition
//
// Errors are JSON: {"status":404,"code":"not_found","message":"Device not found"}.
// 500 responses also carry the underlying fault in "error".
//
// In production mode the server also serves the dashboard build from
// server.static_dir, falling back to index.html for client-side routes.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
