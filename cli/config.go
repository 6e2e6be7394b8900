package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/windlass-dev/windlass/config"
)

// NewConfigCmd creates the "config" subcommand group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved agent configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigEnvCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the fully resolved configuration",
		RunE:  runConfigShow,
	}
	addConfigFlags(cmd)
	cmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	snap, err := resolveSnapshot(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	var encoded []byte
	switch format {
	case "json":
		encoded, err = json.MarshalIndent(snap, "", "  ")
	case "yaml":
		encoded, err = yaml.Marshal(snap)
	default:
		return exitError(exitInputParse, "unknown format %q (want json or yaml)", format)
	}
	if err != nil {
		return exitError(exitRuntime, "encoding configuration: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func newConfigEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Export the resolved configuration as environment overrides",
		RunE:  runConfigEnv,
	}
	addConfigFlags(cmd)
	cmd.Flags().String("prefix", config.DefaultEnvPrefix, "Environment variable prefix")
	return cmd
}

func runConfigEnv(cmd *cobra.Command, _ []string) error {
	snap, err := resolveSnapshot(cmd)
	if err != nil {
		return err
	}
	prefix, _ := cmd.Flags().GetString("prefix")
	if err := snap.WriteEnvFile(cmd.OutOrStdout(), prefix); err != nil {
		return exitError(exitRuntime, "writing env file: %v", err)
	}
	return nil
}
