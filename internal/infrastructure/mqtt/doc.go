// Package mqtt provides the MQTT change feed for the scale registry.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Typed config, address and telemetry events
//
// # Architecture
//
// The mirror server publishes a retained event after every successful
// create, config update or address change. Workstations follow the feed to
// keep their local registry current, and scale units publish telemetry on
// the same broker.
//
//	scalereg serve → broker → scalereg follow / scalereg watch
//
// # Topics
//
//	scalereg/config/{model}/{serial}      ConfigEvent (retained)
//	scalereg/address/{model}/{serial}     AddressEvent (retained)
//	scalereg/telemetry/{model}/{serial}   device.Reading
//	scalereg/system/status                StatusMessage (retained, LWT)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	feed := mqtt.NewFeed(client)
//	err = feed.PublishConfig(id, cfg)
//
//	err = client.SubscribeConfigs(func(ev mqtt.ConfigEvent) error {
//	    return store.Edit(ctx, registry.Entry{Identity: ev.Device, Config: ev.Config})
//	})
package mqtt
