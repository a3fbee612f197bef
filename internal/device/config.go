package device

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Default config values for a freshly commissioned scale unit.
const (
	DefaultGain                = 1.0
	DefaultOffset              = 0.0
	DefaultLocation            = "Caldo HQ"
	DefaultIngredient          = "Fake Chicken Wings"
	DefaultHeartbeatPeriod     = 60 * time.Second
	DefaultBufferLength        = 20
	DefaultMaxNoise            = 3.0
	DefaultPhidgetSamplePeriod = 250 * time.Millisecond
)

// Config is the operational configuration of a scale unit.
//
// The registry treats Config as an opaque value: it is stored, compared and
// replaced whole, never patched field by field. The struct is comparable
// with ==.
type Config struct {
	PhidgetID           int32    `toml:"phidgetId" json:"phidgetId"`
	LoadCellID          int32    `toml:"loadCellId" json:"loadCellId"`
	Gain                float64  `toml:"gain" json:"gain"`
	Offset              float64  `toml:"offset" json:"offset"`
	Location            string   `toml:"location" json:"location"`
	Ingredient          string   `toml:"ingredient" json:"ingredient"`
	HeartbeatPeriod     Duration `toml:"heartbeatPeriod" json:"heartbeatPeriod"`
	BufferLength        int      `toml:"bufferLength" json:"bufferLength"`
	MaxNoise            float64  `toml:"maxNoise" json:"maxNoise"`
	PhidgetSamplePeriod Duration `toml:"phidgetSamplePeriod" json:"phidgetSamplePeriod"`
}

// ConfigKeys lists the encoded key of every Config field, in field order.
// Decoders use it to detect records with missing fields.
var ConfigKeys = []string{
	"phidgetId",
	"loadCellId",
	"gain",
	"offset",
	"location",
	"ingredient",
	"heartbeatPeriod",
	"bufferLength",
	"maxNoise",
	"phidgetSamplePeriod",
}

// DefaultConfig returns the config used to seed new registries.
func DefaultConfig() Config {
	return Config{
		Gain:                DefaultGain,
		Offset:              DefaultOffset,
		Location:            DefaultLocation,
		Ingredient:          DefaultIngredient,
		HeartbeatPeriod:     Duration(DefaultHeartbeatPeriod),
		BufferLength:        DefaultBufferLength,
		MaxNoise:            DefaultMaxNoise,
		PhidgetSamplePeriod: Duration(DefaultPhidgetSamplePeriod),
	}
}

// Validate checks values a scale unit cannot run with.
// The local registry stores records without validating them; the mirror
// server validates on write.
func (c Config) Validate() error {
	var errs []string

	for name, v := range map[string]float64{"gain": c.Gain, "offset": c.Offset, "maxNoise": c.MaxNoise} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, name+" must be finite")
		}
	}
	if c.MaxNoise < 0 {
		errs = append(errs, "maxNoise must not be negative")
	}
	if c.BufferLength < 1 {
		errs = append(errs, "bufferLength must be at least 1")
	}
	if c.HeartbeatPeriod <= 0 {
		errs = append(errs, "heartbeatPeriod must be positive")
	}
	if c.PhidgetSamplePeriod <= 0 {
		errs = append(errs, "phidgetSamplePeriod must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}
