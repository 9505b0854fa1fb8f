package mongodb

import "errors"

// Sentinel errors for MongoDB operations.
var (
	// ErrNotConnected indicates the client has been closed.
	ErrNotConnected = errors.New("mongodb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("mongodb: connection failed")

	// ErrNoURI indicates no connection string was configured.
	ErrNoURI = errors.New("mongodb: connection uri is required")
)
