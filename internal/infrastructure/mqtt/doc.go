// Package mqtt provides MQTT connectivity for sensorhub.
//
// Sensors that cannot speak HTTP publish readings to the broker; the server
// subscribes to those topics, stores each reading and republishes the
// stored form for downstream consumers:
//
//	sensor -> sensorhub/data/{deviceId} -> server -> sensorhub/readings/{deviceId}
//
// The client handles auto-reconnect with subscription restore, a retained
// online/offline status on sensorhub/system/status (with a Last Will for
// crashes) and panic recovery around message handlers.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllData(), 1, handler)
//
// Use TLS (cfg.Broker.TLS) whenever the broker is not on localhost.
package mqtt
