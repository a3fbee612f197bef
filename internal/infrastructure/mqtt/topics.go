package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/scale-registry/internal/device"
)

// TopicPrefix is the root of every scale registry topic.
//
// Device topics use the scheme: scalereg/{category}/{model}/{serial}
const TopicPrefix = "scalereg"

// Device topic categories.
const (
	// CategoryConfig carries retained ConfigEvents published by the mirror.
	CategoryConfig = "config"

	// CategoryAddress carries retained AddressEvents published by the mirror.
	CategoryAddress = "address"

	// CategoryTelemetry carries device.Reading events published by scale units.
	CategoryTelemetry = "telemetry"
)

// Topics provides builders for scale registry MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Config(id)
//	// Returns: "scalereg/config/LibraV0/42"
type Topics struct{}

// =============================================================================
// Device Topics
// =============================================================================

// Config returns the topic for config changes of a device.
//
// Example: scalereg/config/LibraV0/42
func (Topics) Config(id device.Identity) string {
	return deviceTopic(CategoryConfig, id)
}

// Address returns the topic for address changes of a device.
//
// Example: scalereg/address/LibraV0/42
func (Topics) Address(id device.Identity) string {
	return deviceTopic(CategoryAddress, id)
}

// Telemetry returns the topic a scale unit publishes readings on.
//
// Example: scalereg/telemetry/LibraV0/42
func (Topics) Telemetry(id device.Identity) string {
	return deviceTopic(CategoryTelemetry, id)
}

func deviceTopic(category string, id device.Identity) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, category, id.Model, id.Serial)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic carrying online/offline
// messages and the Last Will.
//
// Example: scalereg/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllConfigs returns a pattern matching config changes of every device.
//
// Pattern: scalereg/config/+/+
func (Topics) AllConfigs() string {
	return fmt.Sprintf("%s/%s/+/+", TopicPrefix, CategoryConfig)
}

// AllAddresses returns a pattern matching address changes of every device.
//
// Pattern: scalereg/address/+/+
func (Topics) AllAddresses() string {
	return fmt.Sprintf("%s/%s/+/+", TopicPrefix, CategoryAddress)
}

// AllTelemetry returns a pattern matching readings from every scale unit.
//
// Pattern: scalereg/telemetry/+/+
func (Topics) AllTelemetry() string {
	return fmt.Sprintf("%s/%s/+/+", TopicPrefix, CategoryTelemetry)
}

// ModelTelemetry returns a pattern matching readings from one model.
//
// Pattern: scalereg/telemetry/LibraV0/+
func (Topics) ModelTelemetry(model device.Model) string {
	return fmt.Sprintf("%s/%s/%s/+", TopicPrefix, CategoryTelemetry, model)
}

// ParseDeviceTopic splits a device topic into its category and identity.
//
// Returns ErrInvalidTopic for topics outside the scalereg/{category}/{model}/{serial}
// scheme, or the device error for a bad model or serial.
func ParseDeviceTopic(topic string) (category string, id device.Identity, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix {
		return "", device.Identity{}, fmt.Errorf("%w: %q is not a device topic", ErrInvalidTopic, topic)
	}
	switch parts[1] {
	case CategoryConfig, CategoryAddress, CategoryTelemetry:
	default:
		return "", device.Identity{}, fmt.Errorf("%w: unknown category %q", ErrInvalidTopic, parts[1])
	}
	id, err = device.NewIdentity(device.Model(parts[2]), parts[3])
	if err != nil {
		return "", device.Identity{}, err
	}
	return parts[1], id, nil
}
