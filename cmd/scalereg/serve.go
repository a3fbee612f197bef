package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/scale-registry/internal/api"
	"github.com/nerrad567/scale-registry/internal/audit"
	"github.com/nerrad567/scale-registry/internal/auth"
	"github.com/nerrad567/scale-registry/internal/infrastructure/mqtt"
	"github.com/nerrad567/scale-registry/internal/mirror"
	"github.com/nerrad567/scale-registry/internal/ui"
)

func newServeCmd(a *app) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the registry mirror server",
		Long: `Runs the HTTP registry mirror backed by SQLite. When mqtt.enabled is set,
every config and address change is published to the MQTT change feed.

With --seed, every record in the local registry is copied into the mirror
before the server starts accepting requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "import the local registry into the mirror at startup")
	return cmd
}

// serve runs the mirror until ctx is cancelled.
func (a *app) serve(ctx context.Context, seed bool) error {
	log := a.log
	log.Info("starting scale registry mirror", "version", version, "commit", commit, "build_date", date)

	if err := a.cfg.ValidateServer(); err != nil {
		return err
	}

	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", a.cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	repo := mirror.NewSQLiteRepository(db.DB)
	trail := audit.NewSQLiteRepository(db.DB)
	if seed {
		n, seedErr := a.seedMirror(ctx, repo, trail)
		if seedErr != nil {
			return fmt.Errorf("seeding mirror: %w", seedErr)
		}
		log.Info("mirror seeded from local registry", "path", a.cfg.Registry.Path, "devices", n)
	}

	checks := map[string]api.HealthChecker{"database": db}

	// Publisher stays a nil interface when the feed is disabled.
	var publisher api.Publisher
	if a.cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(a.cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port),
			"client_id", a.cfg.MQTT.Broker.ClientID,
		)

		publisher = mqtt.NewFeed(mqttClient)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT change feed disabled")
	}

	srv, err := api.New(api.Deps{
		Config:    a.cfg.API,
		Security:  a.cfg.Security,
		Logger:    log,
		Repo:      repo,
		Publisher: publisher,
		Audit:     trail,
		Checks:    checks,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("mirror ready, waiting for shutdown signal", "address", srv.Addr(), "base_path", a.cfg.API.BasePath)
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// seedMirror upserts every local registry record into repo and records each
// one in the audit trail.
func (a *app) seedMirror(ctx context.Context, repo mirror.Repository, trail audit.Repository) (int, error) {
	entries, err := a.store().ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := repo.Upsert(ctx, e.Identity, e.Config); err != nil {
			return 0, fmt.Errorf("%s: %w", e.Identity, err)
		}
		entry := &audit.Entry{
			Action:  audit.ActionSeed,
			Device:  e.Identity.String(),
			Source:  audit.SourceSeed,
			Details: map[string]any{"registry": a.cfg.Registry.Path},
		}
		if err := trail.Record(ctx, entry); err != nil {
			a.log.Warn("failed to record audit entry", "device", e.Identity.String(), "error", err)
		}
	}
	return len(entries), nil
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for the mirror server",
		Long: `Signs a bearer token with security.jwt.secret (SCALEREG_JWT_SECRET).

Roles:
  reader  read configs, read and record addresses
  writer  reader plus create devices and replace configs
  admin   everything, including listing all devices

Example:
  scalereg token line-2-tablet --role reader --ttl 720h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = a.cfg.GetAccessTokenTTL()
			}

			token, err := auth.GenerateToken(args[0], r, []byte(a.cfg.Security.JWT.Secret), ttl)
			if err != nil {
				if errors.Is(err, auth.ErrSecretTooShort) {
					return fmt.Errorf("%w (set SCALEREG_JWT_SECRET)", err)
				}
				return err
			}

			a.printf("%s\n", token)
			fmt.Fprintf(a.errOut, "%s %s token for %s, expires %s\n",
				ui.Success.Sprint("✓"), r, ui.Value.Sprint(args[0]),
				ui.Muted.Sprint(time.Now().Add(ttl).Format(time.RFC3339)))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(auth.RoleReader), "token role: reader, writer or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.jwt.access_token_ttl)")
	return cmd
}
