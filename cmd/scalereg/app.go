package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/scale-registry/internal/backend"
	"github.com/nerrad567/scale-registry/internal/infrastructure/config"
	"github.com/nerrad567/scale-registry/internal/infrastructure/logging"
	"github.com/nerrad567/scale-registry/internal/registry"
)

// configEnv names the config file when --config is not given.
const configEnv = "SCALEREG_CONFIG"

// defaultConfigPath is used when neither --config nor SCALEREG_CONFIG is set.
// A missing file falls back to defaults plus environment overrides.
const defaultConfigPath = "scalereg.yaml"

// app carries state shared by every command.
type app struct {
	configPath   string
	registryPath string
	verbose      bool

	cfg *config.Config
	log *logging.Logger

	out    io.Writer
	errOut io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{out: stdout, errOut: stderr}
}

// load reads configuration and sets up logging. Runs before every command.
func (a *app) load(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadOptional(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.registryPath != "" {
		cfg.Registry.Path = a.registryPath
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg

	// Interactive commands log as text to stderr; serve uses the configured format.
	logCfg := cfg.Logging
	if cmd.Name() != "serve" {
		logCfg.Format = "text"
		if !a.verbose {
			logCfg.Level = "warn"
		}
	}
	a.log = logging.NewWithWriter(logCfg, version, a.errOut)
	return nil
}

// store opens the local registry file.
func (a *app) store() *registry.Store {
	return registry.Open(a.cfg.Registry.Path, registry.WithLogger(a.log))
}

// lockContext bounds how long a local write waits for the registry lock.
func (a *app) lockContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.GetLockTimeout())
}

// client builds the remote registry client from backend settings.
func (a *app) client() (*backend.Client, error) {
	if a.cfg.Backend.URL == "" {
		return nil, fmt.Errorf("%w: backend.url (set %sBACKEND_URL)", registry.ErrEnvMissing, config.EnvPrefix)
	}
	if a.cfg.Backend.Token == "" {
		return backend.NewFromEnv(a.cfg.Backend.URL, a.backendOptions()...)
	}
	return backend.New(a.cfg.Backend.URL, a.cfg.Backend.Token, a.backendOptions()...), nil
}

func (a *app) backendOptions() []backend.Option {
	return []backend.Option{
		backend.WithTimeout(a.cfg.GetBackendTimeout()),
		backend.WithLogger(a.log),
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
