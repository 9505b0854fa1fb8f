// Package dashboard is the client side of sensorhub: a typed REST client
// and a polling Context that keeps the view a dashboard renders.
//
// The Context polls /api/data/latest on a fixed interval and fetches the
// history of one selected device on demand. Responses that arrive after a
// newer request of the same kind, or after the selection moved to another
// device, are dropped, so a slow reply can never overwrite fresher state.
//
// Usage:
//
//	client := dashboard.NewClient("http://localhost:5000", 10*time.Second)
//	dash := dashboard.NewContext(client, dashboard.Options{PollInterval: 5 * time.Second})
//	unsubscribe := dash.Subscribe(render)
//	defer unsubscribe()
//	if err := dash.Start(ctx); err != nil {
//	    log.Printf("loading devices: %v", err)
//	}
//	defer dash.Stop()
package dashboard
