package registry

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the local Store and the remote backend client, so
// callers can write one handling path regardless of which surface failed.
//
// Check with errors.Is():
//
//	if errors.Is(err, registry.ErrRecordNotFound) {
//	    // identity absent from the registry
//	}
//
// Remote status failures are *BackendError values and also match ErrBackend:
//
//	var be *registry.BackendError
//	if errors.As(err, &be) && be.Status == http.StatusNotFound {
//	    // ...
//	}
var (
	// ErrNotFound is returned when the registry file does not exist.
	ErrNotFound = errors.New("registry: file does not exist")

	// ErrAlreadyExists is returned when creating a registry file that exists,
	// or adding a record whose identity is already present.
	ErrAlreadyExists = errors.New("registry: already exists")

	// ErrDuplicateIdentity is returned by Create when two input entries share
	// an identity. It matches ErrAlreadyExists.
	ErrDuplicateIdentity = fmt.Errorf("%w: duplicate identity in input", ErrAlreadyExists)

	// ErrRecordNotFound is returned when edit or remove targets an identity
	// absent from the registry.
	ErrRecordNotFound = errors.New("registry: record not found")

	// ErrDecode is returned when text cannot be parsed into the expected shape.
	ErrDecode = errors.New("registry: decode failed")

	// ErrEncode is returned when a value cannot be serialised.
	ErrEncode = errors.New("registry: encode failed")

	// ErrSchema is returned when a well-formed table does not match the
	// record schema or the document declares an unsupported schema version.
	ErrSchema = errors.New("registry: schema mismatch")

	// ErrTransport is returned for network-level failures (connection refused,
	// timeout) independent of any HTTP status.
	ErrTransport = errors.New("registry: transport failed")

	// ErrBackend is matched by every *BackendError.
	ErrBackend = errors.New("registry: backend error")

	// ErrUnimplemented is returned for operations intentionally not supported.
	ErrUnimplemented = errors.New("registry: not implemented")

	// ErrEnvMissing is returned when a required credential or setting is
	// absent from the environment.
	ErrEnvMissing = errors.New("registry: environment variable not set")

	// ErrFileSystem wraps local I/O failures (permissions, disk) without
	// interpreting them.
	ErrFileSystem = errors.New("registry: file system error")

	// ErrLocked is returned when the registry lock could not be acquired
	// before the context was done.
	ErrLocked = errors.New("registry: lock not acquired")
)

// BackendError reports a non-success HTTP status from the remote registry.
type BackendError struct {
	Status int
}

// Error implements error.
func (e *BackendError) Error() string {
	return fmt.Sprintf("registry: backend error: %d %s", e.Status, http.StatusText(e.Status))
}

// Is reports ErrBackend as a match so errors.Is works without errors.As.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// StatusOf returns the HTTP status carried by a *BackendError in err's chain.
func StatusOf(err error) (int, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Status, true
	}
	return 0, false
}

// fsError wraps an I/O failure in ErrFileSystem.
func fsError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFileSystem, action, err)
}
