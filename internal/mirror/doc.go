// Package mirror persists the server-side copy of every device's config and
// network address.
//
// The mirror is what the backend client talks to: the API package exposes a
// Repository over HTTP, and the scalereg serve command backs it with SQLite.
//
// # Serial Assignment
//
// Create allocates serials per model from the serial_counters table, starting
// at 1. Serials are decimal strings and are never reused. Devices seeded with
// Upsert may already hold a numeric serial; Create skips over those.
//
// # Storage
//
// Configs are stored as JSON text. Addresses are NULL until the device first
// reports one, which GetAddress distinguishes from a missing device:
//
//	addr, err := repo.GetAddress(ctx, id)
//	switch {
//	case errors.Is(err, mirror.ErrDeviceNotFound):
//	case errors.Is(err, mirror.ErrAddressNotSet):
//	}
package mirror
