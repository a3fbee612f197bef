package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/scale-registry/internal/device"
)

// newRootCmd assembles the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "scalereg",
		Short: "Manage the configuration registry of kitchen scale units",
		Long: `scalereg edits the local scale registry file, talks to the registry
mirror server, and follows the MQTT change feed.

Configuration is read from --config, $SCALEREG_CONFIG or ./scalereg.yaml,
then overridden by SCALEREG_* environment variables.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the YAML config file")
	root.PersistentFlags().StringVarP(&a.registryPath, "registry", "r", "", "path to the registry file (overrides registry.path)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newRemoveCmd(a),
		newRemoteCmd(a),
		newPullCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
		newTokenCmd(a),
		newFollowCmd(a),
		newWatchCmd(a),
	)
	return root
}

// identityArg parses the canonical "<Model>-<Serial>" argument.
func identityArg(s string) (device.Identity, error) {
	id, err := device.ParseIdentity(s)
	if err != nil {
		return device.Identity{}, fmt.Errorf("device %q: %w", s, err)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
