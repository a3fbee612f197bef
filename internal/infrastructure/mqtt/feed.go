package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/scale-registry/internal/device"
)

// ConfigEvent is the retained payload on a config topic. It always carries
// the whole config, never a delta.
type ConfigEvent struct {
	Device    device.Identity `json:"device"`
	Config    device.Config   `json:"config"`
	Timestamp time.Time       `json:"timestamp"`
}

// AddressEvent is the retained payload on an address topic.
type AddressEvent struct {
	Device    device.Identity `json:"device"`
	Address   string          `json:"address"`
	Timestamp time.Time       `json:"timestamp"`
}

// Feed publishes mirror changes to the broker.
type Feed struct {
	client *Client
	now    func() time.Time
}

// NewFeed creates a change feed on a connected client.
func NewFeed(client *Client) *Feed {
	return &Feed{client: client, now: time.Now}
}

// PublishConfig announces the current config of id.
func (f *Feed) PublishConfig(id device.Identity, cfg device.Config) error {
	return f.client.PublishJSON(Topics{}.Config(id), ConfigEvent{
		Device:    id,
		Config:    cfg,
		Timestamp: f.now().UTC(),
	}, true)
}

// PublishAddress announces the current address of id.
func (f *Feed) PublishAddress(id device.Identity, address string) error {
	return f.client.PublishJSON(Topics{}.Address(id), AddressEvent{
		Device:    id,
		Address:   address,
		Timestamp: f.now().UTC(),
	}, true)
}

// DecodeConfigEvent parses a config topic message. The identity in the
// payload must match the topic.
func DecodeConfigEvent(topic string, payload []byte) (ConfigEvent, error) {
	var ev ConfigEvent
	if err := decodeDeviceMessage(topic, CategoryConfig, payload, &ev, func() device.Identity { return ev.Device }); err != nil {
		return ConfigEvent{}, err
	}
	return ev, nil
}

// DecodeAddressEvent parses an address topic message.
func DecodeAddressEvent(topic string, payload []byte) (AddressEvent, error) {
	var ev AddressEvent
	if err := decodeDeviceMessage(topic, CategoryAddress, payload, &ev, func() device.Identity { return ev.Device }); err != nil {
		return AddressEvent{}, err
	}
	return ev, nil
}

// DecodeReading parses a telemetry topic message. Readings that omit the
// device take it from the topic.
func DecodeReading(topic string, payload []byte) (device.Reading, error) {
	category, id, err := ParseDeviceTopic(topic)
	if err != nil {
		return device.Reading{}, err
	}
	if category != CategoryTelemetry {
		return device.Reading{}, fmt.Errorf("%w: %q is not a telemetry topic", ErrInvalidTopic, topic)
	}

	var r device.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return device.Reading{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if r.Device == (device.Identity{}) {
		r.Device = id
	} else if r.Device != id {
		return device.Reading{}, fmt.Errorf("%w: reading names %s on topic for %s", ErrInvalidPayload, r.Device, id)
	}
	return r, nil
}

// SubscribeConfigs delivers every config event to handler. Malformed
// messages are reported to the client logger and skipped.
func (c *Client) SubscribeConfigs(handler func(ConfigEvent) error) error {
	return c.Subscribe(Topics{}.AllConfigs(), byte(c.cfg.QoS), func(topic string, payload []byte) error {
		ev, err := DecodeConfigEvent(topic, payload)
		if err != nil {
			return err
		}
		return handler(ev)
	})
}

// SubscribeAddresses delivers every address event to handler.
func (c *Client) SubscribeAddresses(handler func(AddressEvent) error) error {
	return c.Subscribe(Topics{}.AllAddresses(), byte(c.cfg.QoS), func(topic string, payload []byte) error {
		ev, err := DecodeAddressEvent(topic, payload)
		if err != nil {
			return err
		}
		return handler(ev)
	})
}

// SubscribeTelemetry delivers readings matching pattern to handler.
// Use Topics.AllTelemetry or Topics.ModelTelemetry for the pattern.
func (c *Client) SubscribeTelemetry(pattern string, handler func(device.Reading) error) error {
	return c.Subscribe(pattern, byte(c.cfg.QoS), func(topic string, payload []byte) error {
		r, err := DecodeReading(topic, payload)
		if err != nil {
			return err
		}
		return handler(r)
	})
}

func decodeDeviceMessage(topic, want string, payload []byte, v any, named func() device.Identity) error {
	category, id, err := ParseDeviceTopic(topic)
	if err != nil {
		return err
	}
	if category != want {
		return fmt.Errorf("%w: %q is not a %s topic", ErrInvalidTopic, topic, want)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if got := named(); got != id {
		return fmt.Errorf("%w: event names %s on topic for %s", ErrInvalidPayload, got, id)
	}
	return nil
}
