package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/scale-registry/internal/device"
)

// configFlags are the per-field overrides shared by add, edit and the remote
// write commands. Only flags set on the command line are applied.
type configFlags struct {
	phidgetID    int32
	loadCellID   int32
	gain         float64
	offset       float64
	location     string
	ingredient   string
	heartbeat    time.Duration
	bufferLength int
	maxNoise     float64
	samplePeriod time.Duration
}

func (f *configFlags) register(fs *pflag.FlagSet) {
	fs.Int32Var(&f.phidgetID, "phidget-id", 0, "Phidget bridge serial number")
	fs.Int32Var(&f.loadCellID, "load-cell-id", 0, "load cell channel on the bridge")
	fs.Float64Var(&f.gain, "gain", 0, "calibration gain")
	fs.Float64Var(&f.offset, "offset", 0, "calibration offset")
	fs.StringVar(&f.location, "location", "", "where the scale is installed")
	fs.StringVar(&f.ingredient, "ingredient", "", "ingredient the scale holds")
	fs.DurationVar(&f.heartbeat, "heartbeat", 0, "heartbeat period")
	fs.IntVar(&f.bufferLength, "buffer-length", 0, "samples averaged per reading")
	fs.Float64Var(&f.maxNoise, "max-noise", 0, "largest weight change treated as noise")
	fs.DurationVar(&f.samplePeriod, "sample-period", 0, "Phidget sample period")
}

// apply copies every changed flag onto cfg and reports how many were set.
func (f *configFlags) apply(fs *pflag.FlagSet, cfg *device.Config) int {
	n := 0
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
			n++
		}
	}

	set("phidget-id", func() { cfg.PhidgetID = f.phidgetID })
	set("load-cell-id", func() { cfg.LoadCellID = f.loadCellID })
	set("gain", func() { cfg.Gain = f.gain })
	set("offset", func() { cfg.Offset = f.offset })
	set("location", func() { cfg.Location = f.location })
	set("ingredient", func() { cfg.Ingredient = f.ingredient })
	set("heartbeat", func() { cfg.HeartbeatPeriod = device.Duration(f.heartbeat) })
	set("buffer-length", func() { cfg.BufferLength = f.bufferLength })
	set("max-noise", func() { cfg.MaxNoise = f.maxNoise })
	set("sample-period", func() { cfg.PhidgetSamplePeriod = device.Duration(f.samplePeriod) })
	return n
}
