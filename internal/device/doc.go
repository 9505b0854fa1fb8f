// Package device manages the catalogue of registered sensor units.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────┐
//	│                      Device Registry                      │
//	│                                                           │
//	│  ┌────────────────┐   ┌──────────────────┐  ┌──────────┐  │
//	│  │    Registry    │──▶│    Repository    │  │Validation│  │
//	│  │ defaults, logs │   │ SQLite / MongoDB │  │          │  │
//	│  └────────────────┘   └──────────────────┘  └──────────┘  │
//	└───────────│───────────────────────────────────────────────┘
//	            ▼
//	  REST API /api/devices, reading service (existence checks)
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	dev, err := registry.CreateDevice(ctx, device.NewDevice{
//	    DeviceID: "greenhouse-01",
//	    Name:     "Greenhouse North",
//	    Type:     "multi",
//	    Location: "Greenhouse",
//	})
//	if errors.Is(err, device.ErrDeviceExists) {
//	    // deviceId taken
//	}
//
//	name := "Greenhouse N"
//	dev, err = registry.UpdateDevice(ctx, "greenhouse-01", device.Update{Name: &name})
//
// Deleting a device keeps its readings; they simply stop appearing in the
// latest-per-device view.
package device
