package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nerrad567/scale-registry/internal/device"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is a registry document on the local file system.
//
// Mutations (Add, Edit, Remove) run a read-modify-write cycle under an
// exclusive advisory lock on a sidecar file and replace the document with an
// atomic rename. Reads take no lock; they may see a slightly stale document
// but never a partial one.
//
// A Store holds no document state between calls and is safe for concurrent
// use, including by several processes sharing the same path.
type Store struct {
	path     string
	lockPoll time.Duration
	logger   Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLockPoll sets how often a blocked writer retries the lock.
func WithLockPoll(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockPoll = d
		}
	}
}

// Open returns a Store for the document at path. The file is not touched
// until the first operation.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		lockPoll: defaultLockPoll,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Create writes a new registry holding exactly entries.
//
// Parent directories are created as needed. Create never merges into an
// existing document.
//
// Returns:
//   - ErrAlreadyExists if the file already exists
//   - ErrDuplicateIdentity if two entries share an identity
//   - ErrEncode if an entry cannot be serialised
//   - ErrLocked if ctx ends while waiting for another writer
func (s *Store) Create(ctx context.Context, entries []Entry) error {
	if err := checkUnique(entries); err != nil {
		return err
	}
	data, err := encodeDocument(entries)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fsError("create parent directories", err)
	}

	lock, err := acquireLock(ctx, s.path, s.lockPoll)
	if err != nil {
		return err
	}
	defer s.release(lock)

	exists, err := s.exists()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, s.path)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.logger.Info("registry created", "path", s.path, "entries", len(entries))
	return nil
}

// ReadAll returns every entry in document order.
//
// Returns:
//   - ErrNotFound if the file does not exist
//   - ErrDecode if the document is not a table of tables
//   - ErrSchema if a table is not a valid record
func (s *Store) ReadAll(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read()
}

// Get returns the entry for id.
// Returns ErrRecordNotFound if no entry has that identity.
func (s *Store) Get(ctx context.Context, id device.Identity) (Entry, error) {
	entries, err := s.ReadAll(ctx)
	if err != nil {
		return Entry{}, err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return entries[i], nil
}

// Add appends entry to the registry.
//
// Returns:
//   - ErrNotFound if the file does not exist (use Create first)
//   - ErrAlreadyExists if the identity is already present
func (s *Store) Add(ctx context.Context, entry Entry) error {
	err := s.update(ctx, func(entries []Entry) ([]Entry, error) {
		if indexOf(entries, entry.Identity) >= 0 {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, entry.Identity)
		}
		return append(entries, entry), nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("registry entry added", "path", s.path, "device", entry.Identity.String())
	return nil
}

// Edit replaces the record of the entry sharing entry's identity. Every
// other entry is rewritten unchanged and keeps its position.
//
// Returns:
//   - ErrNotFound if the file does not exist
//   - ErrRecordNotFound if the identity is absent
func (s *Store) Edit(ctx context.Context, entry Entry) error {
	err := s.update(ctx, func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, entry.Identity)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, entry.Identity)
		}
		entries[i].Config = entry.Config
		return entries, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("registry entry edited", "path", s.path, "device", entry.Identity.String())
	return nil
}

// Update applies fn to the record of id under a single writer lock, so
// concurrent callers changing different fields do not overwrite each other.
// When fn returns an error nothing is written and that error is returned.
//
// Returns:
//   - Entry: the record as written
//   - ErrNotFound if the file does not exist
//   - ErrRecordNotFound if the identity is absent
func (s *Store) Update(ctx context.Context, id device.Identity, fn func(*device.Config) error) (Entry, error) {
	var updated Entry
	err := s.update(ctx, func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		if err := fn(&entries[i].Config); err != nil {
			return nil, err
		}
		updated = entries[i]
		return entries, nil
	})
	if err != nil {
		return Entry{}, err
	}

	s.logger.Info("registry entry edited", "path", s.path, "device", id.String())
	return updated, nil
}

// Put adds entry, or replaces the record when its identity is already
// present, in one locked cycle. added reports which of the two happened.
//
// Returns ErrNotFound if the file does not exist.
func (s *Store) Put(ctx context.Context, entry Entry) (added bool, err error) {
	err = s.update(ctx, func(entries []Entry) ([]Entry, error) {
		if i := indexOf(entries, entry.Identity); i >= 0 {
			entries[i].Config = entry.Config
			return entries, nil
		}
		added = true
		return append(entries, entry), nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("registry entry saved", "path", s.path, "device", entry.Identity.String(), "added", added)
	return added, nil
}

// Remove deletes the entry with id.
//
// Returns:
//   - ErrNotFound if the file does not exist
//   - ErrRecordNotFound if the identity is absent; the file is left untouched
func (s *Store) Remove(ctx context.Context, id device.Identity) error {
	err := s.update(ctx, func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return append(entries[:i], entries[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("registry entry removed", "path", s.path, "device", id.String())
	return nil
}

// update runs fn over the current entries under the writer lock and replaces
// the document with its result. When fn fails the document is not written.
func (s *Store) update(ctx context.Context, fn func([]Entry) ([]Entry, error)) error {
	// Check before locking so a missing registry does not leave a lock file.
	exists, err := s.exists()
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}

	lock, err := acquireLock(ctx, s.path, s.lockPoll)
	if err != nil {
		return err
	}
	defer s.release(lock)

	entries, err := s.read()
	if err != nil {
		return err
	}

	entries, err = fn(entries)
	if err != nil {
		return err
	}

	data, err := encodeDocument(entries)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// read loads and decodes the document.
func (s *Store) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fsError("read registry", err)
	}
	return decodeDocument(data, s.logger)
}

// exists reports whether the document file is present.
func (s *Store) exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fsError("stat registry", err)
}

func (s *Store) release(lock *fileLock) {
	if err := lock.release(); err != nil {
		s.logger.Warn("releasing registry lock failed", "path", s.path, "error", err)
	}
}
