// Package database provides SQLite connectivity for sensorhub.
//
// This package manages:
//   - The database connection, with optional WAL mode
//   - Schema migrations embedded from the migrations package
//   - Connection lifecycle and health checks
//
// All queries use parameterised statements. The database file is
// restricted to 0600.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Each one is applied in its own transaction.
package database
