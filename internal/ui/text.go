package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/nerrad567/scale-registry/internal/device"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...any) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...any) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// noColor reports whether colour output is disabled.
func noColor() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

// Semantic formatters for scalereg output.
var (
	// Identity formats a device identity. Cyan, [brackets] without colour.
	Identity = Formatter{color.New(color.FgCyan, color.Bold), "[", "]"}

	// Code formats a runnable command. Yellow, `backticks` without colour.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats a file path.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Success formats success markers.
	Success = Formatter{color.New(color.FgGreen), "", ""}

	// Error formats failure markers.
	Error = Formatter{color.New(color.FgRed), "", ""}

	// Warning formats warnings.
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Info formats hints.
	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Value formats user-supplied values. 'single quotes' without colour.
	Value = Formatter{color.New(color.FgGreen), "'", "'"}

	// Muted formats secondary text. (parentheses) without colour.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// actionFormatters colours telemetry actions by severity.
var actionFormatters = map[device.Action]Formatter{
	device.ActionServed:    Success,
	device.ActionRefilled:  Success,
	device.ActionRanOut:    Error,
	device.ActionOffline:   Error,
	device.ActionStarting:  Info,
	device.ActionHeartbeat: Formatter{color.New(color.FgHiBlack), "", ""},
}

// Action formats a telemetry action.
func Action(a device.Action) string {
	f, ok := actionFormatters[a]
	if !ok {
		f = Warning
	}
	return f.Sprint(string(a))
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}
