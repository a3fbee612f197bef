package device

import "fmt"

// Model identifies a hardware variant.
//
// The set is closed: ParseModel never falls back to a default variant.
type Model string

// Known hardware variants.
const (
	// ModelIchibuV1 is the first-generation dispenser.
	ModelIchibuV1 Model = "IchibuV1"

	// ModelIchibuV2 is the second-generation dispenser.
	ModelIchibuV2 Model = "IchibuV2"

	// ModelLibraV0 is the load-cell scale unit.
	ModelLibraV0 Model = "LibraV0"
)

// AllModels lists every known variant in declaration order.
var AllModels = []Model{ModelIchibuV1, ModelIchibuV2, ModelLibraV0}

// ParseModel converts a model tag to a Model.
// Returns ErrUnknownModel if the tag does not match a known variant exactly.
func ParseModel(s string) (Model, error) {
	for _, m := range AllModels {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// IsValid reports whether m is one of the known variants.
func (m Model) IsValid() bool {
	_, err := ParseModel(string(m))
	return err == nil
}

// String returns the model tag.
func (m Model) String() string {
	return string(m)
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, string(m))
	}
	return []byte(m), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(text []byte) error {
	parsed, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
