package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/scale-registry/internal/device"
)

// maxAddressLength bounds stored addresses (host:port or URL).
const maxAddressLength = 255

// Record is one device row.
type Record struct {
	Identity  device.Identity `json:"identity"`
	Config    device.Config   `json:"config"`
	Address   string          `json:"address,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Repository defines the interface for mirror persistence operations.
// This abstraction allows handlers to be tested without a database.
type Repository interface {
	// Create stores cfg under a newly assigned serial for model.
	Create(ctx context.Context, model device.Model, cfg device.Config) (device.Identity, error)

	// Get returns the config of id.
	// Returns ErrDeviceNotFound if the device does not exist.
	Get(ctx context.Context, id device.Identity) (device.Config, error)

	// Update replaces the config of id.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, id device.Identity, cfg device.Config) error

	// Upsert stores cfg under id, creating the device if needed. Used to seed
	// the mirror from a local registry.
	Upsert(ctx context.Context, id device.Identity, cfg device.Config) error

	// GetAddress returns the address recorded for id.
	// Returns ErrDeviceNotFound or ErrAddressNotSet.
	GetAddress(ctx context.Context, id device.Identity) (string, error)

	// SetAddress records the address of id.
	// Returns ErrDeviceNotFound if the device does not exist.
	SetAddress(ctx context.Context, id device.Identity, address string) error

	// List returns every device ordered by model then serial.
	List(ctx context.Context) ([]Record, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Create assigns the next numeric serial for model inside a transaction and
// stores cfg under it. Serials are never reused; a serial already taken by a
// seeded device is skipped.
func (r *SQLiteRepository) Create(ctx context.Context, model device.Model, cfg device.Config) (device.Identity, error) {
	if !model.IsValid() {
		return device.Identity{}, fmt.Errorf("%w: %q", device.ErrUnknownModel, string(model))
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return device.Identity{}, fmt.Errorf("marshalling config: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return device.Identity{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var id device.Identity
	for {
		var next int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO serial_counters (model, next) VALUES (?, 1)
			ON CONFLICT (model) DO UPDATE SET next = next + 1
			RETURNING next`,
			string(model),
		).Scan(&next)
		if err != nil {
			return device.Identity{}, fmt.Errorf("allocating serial: %w", err)
		}

		id = device.Identity{Model: model, Serial: strconv.FormatInt(next, 10)}
		taken, err := exists(ctx, tx, id)
		if err != nil {
			return device.Identity{}, err
		}
		if !taken {
			break
		}
	}

	now := r.now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO devices (model, serial, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(id.Model), id.Serial, string(configJSON), now, now,
	); err != nil {
		return device.Identity{}, fmt.Errorf("inserting device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return device.Identity{}, fmt.Errorf("committing device: %w", err)
	}
	return id, nil
}

// Get returns the config of id.
func (r *SQLiteRepository) Get(ctx context.Context, id device.Identity) (device.Config, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT config FROM devices WHERE model = ? AND serial = ?",
		string(id.Model), id.Serial,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return device.Config{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	if err != nil {
		return device.Config{}, fmt.Errorf("querying device config: %w", err)
	}

	var cfg device.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return device.Config{}, fmt.Errorf("unmarshalling config of %s: %w", id, err)
	}
	return cfg, nil
}

// Update replaces the config of id.
func (r *SQLiteRepository) Update(ctx context.Context, id device.Identity, cfg device.Config) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET config = ?, updated_at = ?
		WHERE model = ? AND serial = ?`,
		string(configJSON), r.now().UTC().Format(time.RFC3339Nano), string(id.Model), id.Serial,
	)
	if err != nil {
		return fmt.Errorf("updating device config: %w", err)
	}
	return requireOneRow(result, id)
}

// Upsert stores cfg under id, creating the device if needed.
func (r *SQLiteRepository) Upsert(ctx context.Context, id device.Identity, cfg device.Config) error {
	if err := id.Validate(); err != nil {
		return err
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := r.now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (model, serial, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (model, serial) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at`,
		string(id.Model), id.Serial, string(configJSON), now, now,
	); err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}
	return nil
}

// GetAddress returns the address recorded for id.
func (r *SQLiteRepository) GetAddress(ctx context.Context, id device.Identity) (string, error) {
	var address sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT address FROM devices WHERE model = ? AND serial = ?",
		string(id.Model), id.Serial,
	).Scan(&address)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("querying device address: %w", err)
	}
	if !address.Valid {
		return "", fmt.Errorf("%w: %s", ErrAddressNotSet, id)
	}
	return address.String, nil
}

// SetAddress records the address of id.
func (r *SQLiteRepository) SetAddress(ctx context.Context, id device.Identity, address string) error {
	address = strings.TrimSpace(address)
	if address == "" || len(address) > maxAddressLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidAddress, maxAddressLength)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET address = ?, updated_at = ?
		WHERE model = ? AND serial = ?`,
		address, r.now().UTC().Format(time.RFC3339Nano), string(id.Model), id.Serial,
	)
	if err != nil {
		return fmt.Errorf("updating device address: %w", err)
	}
	return requireOneRow(result, id)
}

// List returns every device ordered by model then serial.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT model, serial, config, address, created_at, updated_at
		FROM devices
		ORDER BY model, serial`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                  Record
			model, raw           string
			address              sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&model, &rec.Identity.Serial, &raw, &address, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		if rec.Identity.Model, err = device.ParseModel(model); err != nil {
			return nil, fmt.Errorf("device row: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Config); err != nil {
			return nil, fmt.Errorf("unmarshalling config of %s: %w", rec.Identity, err)
		}
		rec.Address = address.String
		// Timestamps are written by this package in RFC 3339.
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // Format is controlled
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // Format is controlled
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

func exists(ctx context.Context, tx *sql.Tx, id device.Identity) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM devices WHERE model = ? AND serial = ?",
		string(id.Model), id.Serial,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking serial: %w", err)
	}
	return n > 0, nil
}

func requireOneRow(result sql.Result, id device.Identity) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return nil
}
