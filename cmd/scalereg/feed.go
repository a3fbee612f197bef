package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/scale-registry/internal/device"
	"github.com/nerrad567/scale-registry/internal/infrastructure/mqtt"
	"github.com/nerrad567/scale-registry/internal/registry"
	"github.com/nerrad567/scale-registry/internal/ui"
)

func newFollowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Apply config changes from the MQTT feed to the local registry",
		Long: `Subscribes to scalereg/config/+/+ and writes every announced config into
the local registry. A missing registry file is created first. Address
announcements on scalereg/address/+/+ are printed; the local registry does
not store addresses. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store := a.store()

			if _, err := store.ReadAll(ctx); errors.Is(err, registry.ErrNotFound) {
				lockCtx, cancel := a.lockContext(ctx)
				err = store.Create(lockCtx, nil)
				cancel()
				if err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			client, err := a.connectFeed("follow")
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck // best effort on exit

			if err := client.SubscribeConfigs(a.feedHandler(ctx, store)); err != nil {
				return err
			}
			if err := client.SubscribeAddresses(a.addressHandler()); err != nil {
				return err
			}

			fmt.Fprintf(a.errOut, "%s Following %s and %s into %s\n",
				ui.Info.Sprint("→"), mqtt.Topics{}.AllConfigs(), mqtt.Topics{}.AllAddresses(), ui.Path.Sprint(a.cfg.Registry.Path))
			<-ctx.Done()
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print scale telemetry from the MQTT feed",
		Long: `Subscribes to scale telemetry and prints one line per reading. Runs until
interrupted.

Examples:
  scalereg watch
  scalereg watch --model LibraV0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pattern := mqtt.Topics{}.AllTelemetry()
			if model != "" {
				m, err := device.ParseModel(model)
				if err != nil {
					return err
				}
				pattern = mqtt.Topics{}.ModelTelemetry(m)
			}

			client, err := a.connectFeed("watch")
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck // best effort on exit

			err = client.SubscribeTelemetry(pattern, func(r device.Reading) error {
				a.printf("%s\n", ui.ReadingLine(r))
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.errOut, "%s Watching %s\n", ui.Info.Sprint("→"), pattern)
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "only show one model")
	return cmd
}

// connectFeed connects to the broker under a client ID distinct from the
// server's so both can run against the same broker.
func (a *app) connectFeed(role string) (*mqtt.Client, error) {
	cfg := a.cfg.MQTT
	cfg.Broker.ClientID = cfg.Broker.ClientID + "-" + role

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(a.log)
	return client, nil
}

// feedHandler applies a config event to the local registry: Add if the
// device is absent, Edit otherwise.
func (a *app) feedHandler(ctx context.Context, store *registry.Store) func(mqtt.ConfigEvent) error {
	return func(ev mqtt.ConfigEvent) error {
		lockCtx, cancel := a.lockContext(ctx)
		defer cancel()

		added, err := store.Put(lockCtx, registry.Entry{Identity: ev.Device, Config: ev.Config})
		if err != nil {
			return fmt.Errorf("applying %s: %w", ev.Device, err)
		}
		action := "updated"
		if added {
			action = "added"
		}

		a.printf("%s %s %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(ev.Device), action)
		return nil
	}
}

// addressHandler prints address announcements.
func (a *app) addressHandler() func(mqtt.AddressEvent) error {
	return func(ev mqtt.AddressEvent) error {
		a.printf("%s %s at %s\n", ui.Info.Sprint("→"), ui.Identity.Sprint(ev.Device), ui.Value.Sprint(ev.Address))
		return nil
	}
}
