package device

import (
	"fmt"
	"regexp"
	"strings"
)

// Separator joins the model tag and serial in the canonical identity form.
const Separator = "-"

// maxSerialLength bounds serial length so keys stay usable as path segments.
const maxSerialLength = 64

// serialPattern is the serial alphabet. It excludes Separator so the
// canonical form splits unambiguously.
var serialPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// Identity is the unique key of a device: model tag plus serial.
//
// Identity is a comparable value type; equality is structural.
type Identity struct {
	Model  Model  `json:"model"`
	Serial string `json:"serial"`
}

// NewIdentity validates both parts and returns the identity.
//
// Returns:
//   - ErrUnknownModel if model is not a known variant
//   - ErrInvalidFormat if serial is empty, too long, or contains characters
//     outside [A-Za-z0-9_.]
func NewIdentity(model Model, serial string) (Identity, error) {
	if !model.IsValid() {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownModel, string(model))
	}
	if err := ValidateSerial(serial); err != nil {
		return Identity{}, err
	}
	return Identity{Model: model, Serial: serial}, nil
}

// ValidateSerial checks a serial against the allowed alphabet.
func ValidateSerial(serial string) error {
	if serial == "" {
		return fmt.Errorf("%w: empty serial", ErrInvalidFormat)
	}
	if len(serial) > maxSerialLength {
		return fmt.Errorf("%w: serial longer than %d characters", ErrInvalidFormat, maxSerialLength)
	}
	if !serialPattern.MatchString(serial) {
		return fmt.Errorf("%w: serial %q contains characters outside [A-Za-z0-9_.]", ErrInvalidFormat, serial)
	}
	return nil
}

// ParseIdentity parses the canonical "<Model>-<Serial>" form.
//
// The string is split on the first Separator only. Fewer than two segments
// is ErrInvalidFormat; an unrecognised model segment is ErrUnknownModel.
func ParseIdentity(s string) (Identity, error) {
	modelPart, serial, found := strings.Cut(s, Separator)
	if !found {
		return Identity{}, fmt.Errorf("%w: %q has no %q separator", ErrInvalidFormat, s, Separator)
	}
	model, err := ParseModel(modelPart)
	if err != nil {
		return Identity{}, err
	}
	if err := ValidateSerial(serial); err != nil {
		return Identity{}, err
	}
	return Identity{Model: model, Serial: serial}, nil
}

// String returns the canonical "<Model>-<Serial>" form used as the registry
// key and as the public export path segment.
func (id Identity) String() string {
	return string(id.Model) + Separator + id.Serial
}

// Validate reports whether the identity could have come from NewIdentity.
func (id Identity) Validate() error {
	_, err := NewIdentity(id.Model, id.Serial)
	return err
}
