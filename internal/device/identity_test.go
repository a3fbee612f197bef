package device

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Identity
		wantErr error
	}{
		{
			name:  "libra with string serial",
			input: "LibraV0-Lib0",
			want:  Identity{Model: ModelLibraV0, Serial: "Lib0"},
		},
		{
			name:  "numeric serial",
			input: "IchibuV2-15",
			want:  Identity{Model: ModelIchibuV2, Serial: "15"},
		},
		{
			name:  "serial with dot and underscore",
			input: "IchibuV1-rev_2.1",
			want:  Identity{Model: ModelIchibuV1, Serial: "rev_2.1"},
		},
		{
			name:    "no separator",
			input:   "LibraV0",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "empty serial",
			input:   "LibraV0-",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "serial containing separator",
			input:   "LibraV0-a-b",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "unknown model",
			input:   "LibraV9-1",
			wantErr: ErrUnknownModel,
		},
		{
			name:    "model is case sensitive",
			input:   "librav0-1",
			wantErr: ErrUnknownModel,
		},
		{
			name:    "serial too long",
			input:   "LibraV0-" + strings.Repeat("9", maxSerialLength+1),
			wantErr: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseIdentity(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdentity(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseIdentity(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIdentity_String(t *testing.T) {
	id := Identity{Model: ModelLibraV0, Serial: "Lib0"}
	if got := id.String(); got != "LibraV0-Lib0" {
		t.Errorf("String() = %q, want %q", got, "LibraV0-Lib0")
	}
}

func TestIdentity_RoundTrip(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		model := rapid.SampledFrom(AllModels).Draw(r, "model")
		serial := rapid.StringMatching(`[A-Za-z0-9_.]{1,64}`).Draw(r, "serial")

		id, err := NewIdentity(model, serial)
		if err != nil {
			r.Fatalf("NewIdentity(%q, %q) error = %v", model, serial, err)
		}

		parsed, err := ParseIdentity(id.String())
		if err != nil {
			r.Fatalf("ParseIdentity(%q) error = %v", id.String(), err)
		}
		if parsed != id {
			r.Fatalf("ParseIdentity(String()) = %+v, want %+v", parsed, id)
		}
	})
}

func TestNewIdentity_UnknownModel(t *testing.T) {
	_, err := NewIdentity(Model("Scale9000"), "1")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("NewIdentity() error = %v, want %v", err, ErrUnknownModel)
	}
}

func TestIdentity_JSON(t *testing.T) {
	id := Identity{Model: ModelLibraV0, Serial: "42"}

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(data) != `{"model":"LibraV0","serial":"42"}` {
		t.Errorf("json.Marshal() = %s", data)
	}

	var bad Identity
	err = json.Unmarshal([]byte(`{"model":"Nope","serial":"1"}`), &bad)
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("json.Unmarshal() unknown model error = %v, want %v", err, ErrUnknownModel)
	}
}

func TestParseModel(t *testing.T) {
	for _, m := range AllModels {
		got, err := ParseModel(m.String())
		if err != nil {
			t.Fatalf("ParseModel(%q) error = %v", m, err)
		}
		if got != m {
			t.Errorf("ParseModel(%q) = %q", m, got)
		}
	}

	if _, err := ParseModel(""); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("ParseModel(\"\") error = %v, want %v", err, ErrUnknownModel)
	}
}
