// Package mongodb provides the optional document-store backend connection.
//
// When a connection string is configured (MONGO_URI or mongodb.uri) the
// server keeps devices and readings in MongoDB instead of SQLite. This
// package only owns the connection; the device and reading packages own
// their collections and indexes.
//
//	client, err := mongodb.Connect(ctx, cfg.MongoDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	devices := client.Collection("devices")
//
// Connection strings may carry credentials and must never be logged.
package mongodb
