// Package registry stores scale unit configuration records in a local TOML
// document keyed by device identity.
//
// This package manages:
//   - The registry document format (versioned, tables in insertion order)
//   - Create, read, add, edit and remove with existence preconditions
//   - Whole-file replacement through a temp file and atomic rename
//   - Advisory locking so concurrent writers serialise
//   - The error taxonomy shared with the remote backend client
//
// Usage:
//
//	store := registry.Open("scales.toml")
//	id, _ := device.ParseIdentity("LibraV0-Lib0")
//	if err := store.Create(ctx, []registry.Entry{registry.NewEntry(id)}); err != nil {
//	    return err
//	}
//
//	entry, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	entry.Config.Location = "Kitchen 2"
//	if err := store.Edit(ctx, entry); err != nil {
//	    return err
//	}
//
// # Document Format
//
// The root carries schemaVersion = 2 followed by one table per entry, keyed
// by the canonical identity:
//
//	schemaVersion = 2
//
//	["LibraV0-Lib0"]
//	phidgetId = 0
//	gain = 1.0
//	heartbeatPeriod = "60s"
//	...
//
// Documents without schemaVersion are read as the version 1 layout
// (kebab-case calibration keys) and migrated in memory; the next write
// persists version 2.
//
// # Concurrency
//
// Mutations lock "<path>.lock" with flock(2) or LockFileEx. Waiting for the
// lock is bounded by the caller's context. Readers do not lock.
package registry
