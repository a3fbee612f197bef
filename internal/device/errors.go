package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrUnknownModel) {
//	    // handle unsupported hardware
//	}
var (
	// ErrInvalidFormat is returned when an identity string is not of the
	// form "<Model>-<Serial>" or the serial contains forbidden characters.
	ErrInvalidFormat = errors.New("device: invalid identity format")

	// ErrUnknownModel is returned when a model tag is not one of the known variants.
	ErrUnknownModel = errors.New("device: unknown model")

	// ErrInvalidConfig is returned when a config record fails validation.
	ErrInvalidConfig = errors.New("device: invalid config")

	// ErrUnknownAction is returned when a telemetry action tag is not recognised.
	ErrUnknownAction = errors.New("device: unknown action")
)
