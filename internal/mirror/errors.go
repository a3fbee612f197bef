package mirror

import "errors"

// Sentinel errors for mirror repository operations.
//
// Check with errors.Is():
//
//	if errors.Is(err, mirror.ErrDeviceNotFound) {
//	    // 404
//	}
var (
	// ErrDeviceNotFound is returned when no device has the requested identity.
	ErrDeviceNotFound = errors.New("mirror: device not found")

	// ErrAddressNotSet is returned when a device exists but has never
	// reported an address.
	ErrAddressNotSet = errors.New("mirror: address not set")

	// ErrInvalidAddress is returned for empty or oversized addresses.
	ErrInvalidAddress = errors.New("mirror: invalid address")
)
