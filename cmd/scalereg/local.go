package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/scale-registry/internal/device"
	"github.com/nerrad567/scale-registry/internal/registry"
	"github.com/nerrad567/scale-registry/internal/ui"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [device...]",
		Short: "Create the local registry file",
		Long: `Creates a new registry file. Each named device is seeded with the default
config. Fails if the file already exists.

Examples:
  scalereg init
  scalereg init LibraV0-1 LibraV0-2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]registry.Entry, 0, len(args))
			for _, arg := range args {
				id, err := identityArg(arg)
				if err != nil {
					return err
				}
				entries = append(entries, registry.NewEntry(id))
			}

			ctx, cancel := a.lockContext(cmd.Context())
			defer cancel()
			if err := a.store().Create(ctx, entries); err != nil {
				return err
			}

			a.printf("%s Created %s with %d device(s)\n", ui.Success.Sprint("✓"), ui.Path.Sprint(a.cfg.Registry.Path), len(entries))
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices in the local registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.store().ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []registry.Entry{}
				}
				return writeJSON(a.out, entries)
			}
			if len(entries) == 0 {
				a.printf("%s No devices in %s\n", ui.Warning.Sprint("!"), ui.Path.Sprint(a.cfg.Registry.Path))
				a.printf("%s Run %s to add one\n", ui.Info.Sprint("→"), ui.Code.Sprint("scalereg add <Model>-<Serial>"))
				return nil
			}

			ids := make([]device.Identity, len(entries))
			cfgs := make([]device.Config, len(entries))
			for i, e := range entries {
				ids[i], cfgs[i] = e.Identity, e.Config
			}
			return ui.Table(a.out, ids, cfgs)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <device>",
		Short: "Show the config of one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityArg(args[0])
			if err != nil {
				return err
			}
			entry, err := a.store().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printConfig(id, entry.Config, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "add <device>",
		Short: "Add a device to the local registry",
		Long: `Adds a device with the default config, overridden by any field flags.

Examples:
  scalereg add LibraV0-7 --phidget-id 716 --load-cell-id 2 --gain -1.5e6
  scalereg add IchibuV2-A1 --location "line 2" --ingredient Flour`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityArg(args[0])
			if err != nil {
				return err
			}
			entry := registry.NewEntry(id)
			flags.apply(cmd.Flags(), &entry.Config)

			ctx, cancel := a.lockContext(cmd.Context())
			defer cancel()
			if err := a.store().Add(ctx, entry); err != nil {
				if errors.Is(err, registry.ErrNotFound) {
					return fmt.Errorf("%w (run `scalereg init` first)", err)
				}
				return err
			}

			a.printf("%s Added %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(id))
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "edit <device>",
		Short: "Change fields of a device in the local registry",
		Long: `Rewrites the record of one device. Only the given field flags change;
every other device keeps its record and position in the file.

Example:
  scalereg edit LibraV0-7 --gain -1.49e6 --offset 0.02`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityArg(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.lockContext(cmd.Context())
			defer cancel()
			_, err = a.store().Update(ctx, id, func(cfg *device.Config) error {
				if flags.apply(cmd.Flags(), cfg) == 0 {
					return errNothingToChange
				}
				return nil
			})
			if err != nil {
				return err
			}

			a.printf("%s Updated %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(id))
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

var errNothingToChange = errors.New("nothing to change: pass at least one field flag")

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <device>",
		Aliases: []string{"rm"},
		Short:   "Remove a device from the local registry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identityArg(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.lockContext(cmd.Context())
			defer cancel()
			if err := a.store().Remove(ctx, id); err != nil {
				return err
			}

			a.printf("%s Removed %s\n", ui.Success.Sprint("✓"), ui.Identity.Sprint(id))
			return nil
		},
	}
}

// printConfig renders one device config as text or JSON.
func (a *app) printConfig(id device.Identity, cfg device.Config, asJSON bool) error {
	if asJSON {
		return writeJSON(a.out, registry.Entry{Identity: id, Config: cfg})
	}
	a.printf("%s\n", ui.Identity.Sprint(id))
	return ui.ConfigLines(a.out, cfg)
}

// saveEntry adds entry to the local registry, or replaces its record when the
// identity is already present.
func (a *app) saveEntry(cmd *cobra.Command, entry registry.Entry) error {
	ctx, cancel := a.lockContext(cmd.Context())
	defer cancel()

	_, err := a.store().Put(ctx, entry)
	return err
}
