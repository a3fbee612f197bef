package ui

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/scale-registry/internal/device"
)

// ConfigLines writes cfg as aligned "key  value" lines, one per field, in
// encoded field order.
func ConfigLines(w io.Writer, cfg device.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, kv := range configFields(cfg) {
		fmt.Fprintf(tw, "  %s\t%s\n", kv[0], kv[1])
	}
	return tw.Flush()
}

// Table writes one row per identity with its location and ingredient.
func Table(w io.Writer, ids []device.Identity, configs []device.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tLOCATION\tINGREDIENT\tPHIDGET\tLOAD CELL")
	for i, id := range ids {
		cfg := configs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			id, orDash(cfg.Location), orDash(cfg.Ingredient), cfg.PhidgetID, cfg.LoadCellID)
	}
	return tw.Flush()
}

// ReadingLine formats a telemetry reading on one line.
func ReadingLine(r device.Reading) string {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("%s %s %s", Muted.Sprint(ts.Format(time.TimeOnly)), Identity.Sprint(r.Device), Action(r.Action))
	if r.Ingredient != "" {
		line += " " + r.Ingredient
	}
	if r.Action == device.ActionServed || r.Action == device.ActionRefilled {
		line += " " + strconv.FormatFloat(r.Amount, 'f', -1, 64)
	}
	if r.Location != "" {
		line += " @ " + r.Location
	}
	return line
}

func configFields(cfg device.Config) [][2]string {
	return [][2]string{
		{"phidgetId", strconv.FormatInt(int64(cfg.PhidgetID), 10)},
		{"loadCellId", strconv.FormatInt(int64(cfg.LoadCellID), 10)},
		{"gain", strconv.FormatFloat(cfg.Gain, 'g', -1, 64)},
		{"offset", strconv.FormatFloat(cfg.Offset, 'g', -1, 64)},
		{"location", cfg.Location},
		{"ingredient", cfg.Ingredient},
		{"heartbeatPeriod", cfg.HeartbeatPeriod.String()},
		{"bufferLength", strconv.Itoa(cfg.BufferLength)},
		{"maxNoise", strconv.FormatFloat(cfg.MaxNoise, 'g', -1, 64)},
		{"phidgetSamplePeriod", cfg.PhidgetSamplePeriod.String()},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
