//go:build integration

package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/scale-registry/internal/device"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationClient(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// TestIntegration_ConnectRefused verifies a closed port fails within the
// connect timeout.
func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// TestIntegration_ConfigFeedRoundtrip verifies a published config reaches a
// SubscribeConfigs handler.
func TestIntegration_ConfigFeedRoundtrip(t *testing.T) {
	pub := integrationClient(t, "scalereg-int-pub")
	sub := integrationClient(t, "scalereg-int-sub")

	id := device.Identity{Model: device.ModelLibraV0, Serial: "9001"}
	want := device.DefaultConfig()
	want.PhidgetID = 9001

	received := make(chan ConfigEvent, 1)
	var once sync.Once
	err := sub.SubscribeConfigs(func(ev ConfigEvent) error {
		if ev.Device == id {
			once.Do(func() { received <- ev })
		}
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeConfigs() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := NewFeed(pub).PublishConfig(id, want); err != nil {
		t.Fatalf("PublishConfig() error = %v", err)
	}

	select {
	case ev := <-received:
		if ev.Config != want {
			t.Errorf("Config = %+v, want %+v", ev.Config, want)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for config event")
	}
}

// TestIntegration_TelemetryWildcard verifies model-scoped telemetry filters.
func TestIntegration_TelemetryWildcard(t *testing.T) {
	pub := integrationClient(t, "scalereg-int-tel-pub")
	sub := integrationClient(t, "scalereg-int-tel-sub")

	var mu sync.Mutex
	seen := make(map[device.Identity]bool)
	err := sub.SubscribeTelemetry(Topics{}.ModelTelemetry(device.ModelLibraV0), func(r device.Reading) error {
		mu.Lock()
		seen[r.Device] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeTelemetry() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	ids := []device.Identity{
		{Model: device.ModelLibraV0, Serial: "1"},
		{Model: device.ModelLibraV0, Serial: "2"},
		{Model: device.ModelIchibuV1, Serial: "3"},
	}
	for _, id := range ids {
		r := device.Reading{Device: id, Action: device.ActionHeartbeat, Timestamp: time.Now().UTC()}
		if err := pub.PublishJSON(Topics{}.Telemetry(id), r, false); err != nil {
			t.Fatalf("PublishJSON(%s) error = %v", id, err)
		}
	}

	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !seen[ids[0]] || !seen[ids[1]] {
		t.Errorf("missing LibraV0 readings: %v", seen)
	}
	if seen[ids[2]] {
		t.Error("received IchibuV1 reading on LibraV0 filter")
	}
}
