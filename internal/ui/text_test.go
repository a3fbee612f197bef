package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/nerrad567/scale-registry/internal/device"
)

func TestFormatterWithColor(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	color.NoColor = false

	got := Identity.Sprint("LibraV0-1")
	if strings.Contains(got, "[") {
		t.Errorf("Identity.Sprint() = %q, want no brackets with colour", got)
	}
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("Identity.Sprint() = %q, want ANSI escape codes", got)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Identity adds brackets", Identity, "LibraV0-1", "[LibraV0-1]"},
		{"Code adds backticks", Code, "scalereg init", "`scalereg init`"},
		{"Path has no decoration", Path, "scales.toml", "scales.toml"},
		{"Success has no decoration", Success, "ok", "ok"},
		{"Error has no decoration", Error, "failed", "failed"},
		{"Value adds quotes", Value, "Flour", "'Flour'"},
		{"Muted adds parentheses", Muted, "default", "(default)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.formatter.Sprint(tt.input); got != tt.want {
				t.Errorf("Sprint(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSprintf(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := Code.Sprintf("scalereg show %s", "LibraV0-1"); got != "`scalereg show LibraV0-1`" {
		t.Errorf("Sprintf() = %q", got)
	}
}

func TestEnsureNewline(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "\n"},
		{"done", "done\n"},
		{"done\n", "done\n"},
	}
	for _, tt := range tests {
		if got := EnsureNewline(tt.in); got != tt.want {
			t.Errorf("EnsureNewline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAction(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	for _, a := range device.AllActions {
		if got := Action(a); got != string(a) {
			t.Errorf("Action(%s) = %q", a, got)
		}
	}
}

func TestReadingLine(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := device.Reading{
		Device:     device.Identity{Model: device.ModelLibraV0, Serial: "4"},
		Location:   "line 2",
		Ingredient: "Flour",
		Action:     device.ActionServed,
		Amount:     12.5,
		Timestamp:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	want := "(09:30:00) [LibraV0-4] Served Flour 12.5 @ line 2"
	if got := ReadingLine(r); got != want {
		t.Errorf("ReadingLine() = %q, want %q", got, want)
	}

	r.Action = device.ActionHeartbeat
	if got := ReadingLine(r); strings.Contains(got, "12.5") {
		t.Errorf("ReadingLine(heartbeat) = %q, want no amount", got)
	}
}

func TestConfigLinesAndTable(t *testing.T) {
	cfg := device.DefaultConfig()
	cfg.Location = "pantry"

	var buf bytes.Buffer
	if err := ConfigLines(&buf, cfg); err != nil {
		t.Fatalf("ConfigLines() error = %v", err)
	}
	out := buf.String()
	for _, key := range device.ConfigKeys {
		if !strings.Contains(out, key) {
			t.Errorf("ConfigLines() missing %s:\n%s", key, out)
		}
	}

	buf.Reset()
	ids := []device.Identity{{Model: device.ModelIchibuV1, Serial: "2"}}
	if err := Table(&buf, ids, []device.Config{{}}); err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	if !strings.Contains(buf.String(), "IchibuV1-2") || !strings.Contains(buf.String(), "-") {
		t.Errorf("Table() = %q", buf.String())
	}
}
