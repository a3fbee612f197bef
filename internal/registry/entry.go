package registry

import (
	"fmt"

	"github.com/nerrad567/scale-registry/internal/device"
)

// Entry is the unit of storage: an identity and the record it owns.
type Entry struct {
	Identity device.Identity `json:"identity"`
	Config   device.Config   `json:"config"`
}

// NewEntry returns an entry seeded with the default config.
func NewEntry(id device.Identity) Entry {
	return Entry{Identity: id, Config: device.DefaultConfig()}
}

// indexOf returns the position of id in entries, or -1. Registries hold tens
// to low hundreds of entries, so a linear scan is enough.
func indexOf(entries []Entry, id device.Identity) int {
	for i := range entries {
		if entries[i].Identity == id {
			return i
		}
	}
	return -1
}

// checkUnique rejects input that names the same identity twice.
func checkUnique(entries []Entry) error {
	seen := make(map[device.Identity]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Identity]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, e.Identity)
		}
		seen[e.Identity] = struct{}{}
	}
	return nil
}
