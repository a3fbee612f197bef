package registry

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/nerrad567/scale-registry/internal/device"
)

// Document schema versions.
const (
	// SchemaVersion is the version written by this package.
	SchemaVersion = 2

	// legacySchemaVersion is assumed when the document carries no version key.
	// Version 1 files use kebab-case keys (phidget-id, load-cell-id) and hold
	// only the calibration fields, optionally nested under a "config" table
	// next to a "device" table.
	legacySchemaVersion = 1

	// schemaVersionKey is the root key holding the version number.
	schemaVersionKey = "schemaVersion"

	// tomlTypeHash is the MetaData.Type name of an explicit table.
	tomlTypeHash = "Hash"
)

// documentHeader is the root key/value block written before the tables.
type documentHeader struct {
	SchemaVersion int `toml:"schemaVersion"`
}

// legacyConfig is the version 1 record layout.
type legacyConfig struct {
	PhidgetID  int32   `toml:"phidget-id"`
	LoadCellID int32   `toml:"load-cell-id"`
	Gain       float64 `toml:"gain"`
	Offset     float64 `toml:"offset"`
}

// legacyKeys are the fields every version 1 record must define.
var legacyKeys = []string{"phidget-id", "load-cell-id", "gain", "offset"}

// legacyDevice is the version 1 identity table. Serials were numeric.
type legacyDevice struct {
	Model  device.Model `toml:"model"`
	Number uint64       `toml:"number"`
}

// legacyNested is the version 1 layout with config and device sub-tables.
type legacyNested struct {
	Config legacyConfig  `toml:"config"`
	Device *legacyDevice `toml:"device"`
}

// encodeDocument renders entries as a version 2 document. Tables are written
// in slice order so callers control the on-disk order.
func encodeDocument(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer

	if err := toml.NewEncoder(&buf).Encode(documentHeader{SchemaVersion: SchemaVersion}); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrEncode, err)
	}

	for _, e := range entries {
		if err := e.Identity.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		if err := checkStrings(e.Config); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEncode, e.Identity, err)
		}
		fmt.Fprintf(&buf, "\n[%s]\n", toml.Key{e.Identity.String()})
		if err := toml.NewEncoder(&buf).Encode(e.Config); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEncode, e.Identity, err)
		}
	}

	return buf.Bytes(), nil
}

// checkStrings rejects string fields the TOML decoder would refuse to read
// back. The encoder copies invalid UTF-8 through unchanged.
func checkStrings(cfg device.Config) error {
	for _, f := range []struct{ key, value string }{
		{"location", cfg.Location},
		{"ingredient", cfg.Ingredient},
	} {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%s is not valid UTF-8", f.key)
		}
	}
	return nil
}

// decodeDocument parses a registry document of any supported version and
// returns its entries in document order.
func decodeDocument(data []byte, logger Logger) ([]Entry, error) {
	var root map[string]toml.Primitive
	md, err := toml.Decode(string(data), &root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	version := legacySchemaVersion
	if prim, ok := root[schemaVersionKey]; ok {
		if err := md.PrimitiveDecode(prim, &version); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDecode, schemaVersionKey, err)
		}
	}
	if version < legacySchemaVersion || version > SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrSchema, version)
	}

	entries := make([]Entry, 0, len(root))
	for _, name := range tableNames(&md) {
		// Implicit tables (only defined through [name.sub]) have no type.
		if typ := md.Type(name); typ != "" && typ != tomlTypeHash {
			return nil, fmt.Errorf("%w: root value %q is %s, want a table", ErrDecode, name, typ)
		}

		id, err := device.ParseIdentity(name)
		if err != nil {
			return nil, fmt.Errorf("%w: table %q: %w", ErrSchema, name, err)
		}

		var cfg device.Config
		if version == legacySchemaVersion {
			cfg, err = decodeLegacyTable(&md, name, root[name], id)
		} else {
			cfg, err = decodeTable(&md, name, root[name])
		}
		if err != nil {
			return nil, err
		}

		entries = append(entries, Entry{Identity: id, Config: cfg})
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		logger.Warn("ignoring unknown registry keys", "keys", strings.Join(keys, ", "))
	}

	if version == legacySchemaVersion && len(entries) > 0 {
		logger.Info("migrated legacy registry document", "from", legacySchemaVersion, "to", SchemaVersion, "entries", len(entries))
	}

	return entries, nil
}

// tableNames returns the root keys other than the version key, in order of
// first appearance.
func tableNames(md *toml.MetaData) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, key := range md.Keys() {
		name := key[0]
		if name == schemaVersionKey {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// decodeTable decodes a version 2 record. Every field must be present.
func decodeTable(md *toml.MetaData, name string, prim toml.Primitive) (device.Config, error) {
	var cfg device.Config
	if err := md.PrimitiveDecode(prim, &cfg); err != nil {
		return device.Config{}, fmt.Errorf("%w: table %q: %w", ErrSchema, name, err)
	}
	if err := requireKeys(md, []string{name}, device.ConfigKeys); err != nil {
		return device.Config{}, err
	}
	return cfg, nil
}

// decodeLegacyTable decodes a version 1 record and migrates it: keys are
// renamed and fields the old layout lacked take their defaults.
func decodeLegacyTable(md *toml.MetaData, name string, prim toml.Primitive, id device.Identity) (device.Config, error) {
	var legacy legacyConfig
	prefix := []string{name}

	if md.IsDefined(name, "config") {
		var nested legacyNested
		if err := md.PrimitiveDecode(prim, &nested); err != nil {
			return device.Config{}, fmt.Errorf("%w: table %q: %w", ErrSchema, name, err)
		}
		if nested.Device != nil {
			embedded := device.Identity{
				Model:  nested.Device.Model,
				Serial: strconv.FormatUint(nested.Device.Number, 10),
			}
			if embedded != id {
				return device.Config{}, fmt.Errorf("%w: table %q names device %s", ErrSchema, name, embedded)
			}
		}
		legacy = nested.Config
		prefix = append(prefix, "config")
	} else if err := md.PrimitiveDecode(prim, &legacy); err != nil {
		return device.Config{}, fmt.Errorf("%w: table %q: %w", ErrSchema, name, err)
	}

	if err := requireKeys(md, prefix, legacyKeys); err != nil {
		return device.Config{}, err
	}

	cfg := device.DefaultConfig()
	cfg.PhidgetID = legacy.PhidgetID
	cfg.LoadCellID = legacy.LoadCellID
	cfg.Gain = legacy.Gain
	cfg.Offset = legacy.Offset
	return cfg, nil
}

// requireKeys reports ErrSchema listing every key missing under prefix.
func requireKeys(md *toml.MetaData, prefix []string, keys []string) error {
	var missing []string
	for _, k := range keys {
		path := make([]string, 0, len(prefix)+1)
		path = append(path, prefix...)
		path = append(path, k)
		if !md.IsDefined(path...) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: table %q missing %s", ErrSchema, strings.Join(prefix, "."), strings.Join(missing, ", "))
	}
	return nil
}
