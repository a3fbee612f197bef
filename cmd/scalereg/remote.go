package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/scale-registry/internal/backend"
	"github.com/nerrad567/scale-registry/internal/device"
	"github.com/nerrad567/scale-registry/internal/registry"
	"github.com/nerrad567/scale-registry/internal/ui"
)

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Work with the registry mirror server",
		Long: `Commands that talk to the registry mirror at backend.url using the bearer
token in SCALEREG_BACKEND_TOKEN.`,
	}
	cmd.AddCommand(
		newRemoteCreateCmd(a),
		newRemoteGetCmd(a),
		newRemotePutCmd(a),
		newRemoteAddressCmd(a),
	)
	return cmd
}

func newRemoteCreateCmd(a *app) *cobra.Command {
	var (
		flags configFlags
		save  bool
	)
	cmd := &cobra.Command{
		Use:   "create <model>",
		Short: "Register a new device and let the server assign its serial",
		Long: `Registers a device of the given model with the default config, overridden
by any field flags. The server assigns the serial and returns the identity.

Example:
  scalereg remote create LibraV0 --phidget-id 716 --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := device.ParseModel(args[0])
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			cfg := device.DefaultConfig()
			flags.apply(cmd.Flags(), &cfg)

			id, err := client.CreateDevice(cmd.Context(), model, cfg)
			if err != nil {
				return err
			}
			a.printf("%s Created %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(id))

			if save {
				if err := a.saveEntry(cmd, registry.Entry{Identity: id, Config: cfg}); err != nil {
					return fmt.Errorf("saving %s locally: %w", id, err)
				}
				a.printf("%s Saved to %s\n", ui.Success.Sprint("✓"), ui.Path.Sprint(a.cfg.Registry.Path))
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&save, "save", false, "also add the new device to the local registry")
	return cmd
}

func newRemoteGetCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <device>",
		Short: "Fetch the config the server holds for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityArg(args[0])
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			cfg, err := client.GetConfig(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printConfig(id, cfg, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func newRemotePutCmd(a *app) *cobra.Command {
	var (
		flags     configFlags
		fromLocal bool
	)
	cmd := &cobra.Command{
		Use:   "put <device>",
		Short: "Replace the config the server holds for a device",
		Long: `Replaces the server's config for a device. By default the current server
config is fetched and the field flags are applied to it. With --from-local
the record in the local registry is sent instead.

Examples:
  scalereg remote put LibraV0-3 --ingredient Sugar
  scalereg remote put LibraV0-3 --from-local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityArg(args[0])
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			var cfg device.Config
			if fromLocal {
				entry, err := a.store().Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				cfg = entry.Config
			} else {
				cfg, err = client.GetConfig(cmd.Context(), id)
				if err != nil {
					return err
				}
			}
			if flags.apply(cmd.Flags(), &cfg) == 0 && !fromLocal {
				return fmt.Errorf("nothing to change: pass at least one field flag or --from-local")
			}

			if err := client.UpdateConfig(cmd.Context(), id, cfg); err != nil {
				return err
			}
			a.printf("%s Updated %s on %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(id), client.BaseURL())
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&fromLocal, "from-local", false, "send the local registry record")
	return cmd
}

func newRemoteAddressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Read or record the network address of a device",
	}

	get := &cobra.Command{
		Use:   "get <device>",
		Short: "Print the recorded network address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, client, err := a.remoteTarget(args[0])
			if err != nil {
				return err
			}
			addr, err := client.GetAddress(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.printf("%s\n", addr)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <device> <address>",
		Short: "Record the network address of a device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, client, err := a.remoteTarget(args[0])
			if err != nil {
				return err
			}
			if err := client.SetAddress(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			a.printf("%s %s is at %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(id), ui.Value.Sprint(args[1]))
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func (a *app) remoteTarget(arg string) (device.Identity, *backend.Client, error) {
	id, err := identityArg(arg)
	if err != nil {
		return device.Identity{}, nil, err
	}
	client, err := a.client()
	if err != nil {
		return device.Identity{}, nil, err
	}
	return id, client, nil
}

func newPullCmd(a *app) *cobra.Command {
	var (
		save   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "pull <device>",
		Short: "Fetch a published config from the public export endpoint",
		Long: `Fetches a device config without credentials from backend.pull_url
(default: backend.url + "/export"). With --save the record is written to the
local registry, replacing any existing record for the device.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityArg(args[0])
			if err != nil {
				return err
			}
			pullURL := a.cfg.PullURL()
			if pullURL == "/export" {
				return fmt.Errorf("%w: backend.url or backend.pull_url", registry.ErrEnvMissing)
			}

			entry, err := backend.Pull(cmd.Context(), pullURL, id, a.backendOptions()...)
			if err != nil {
				return err
			}

			if save {
				if err := a.saveEntry(cmd, entry); err != nil {
					return err
				}
				a.printf("%s Pulled %s into %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(id), ui.Path.Sprint(a.cfg.Registry.Path))
				return nil
			}
			return a.printConfig(entry.Identity, entry.Config, asJSON)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the pulled record to the local registry")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}
