// Package cli implements the windlass subcommands.
package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/config"
)

// addConfigFlags attaches the flags shared by every config-consuming
// subcommand.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path to agent config file (default: "+config.DefaultPath+")")
	cmd.Flags().Bool("no-env", false, "Ignore environment variable overrides")
}

// resolveSnapshot loads the layered configuration for a subcommand,
// mapping resolution failures onto CLI exit codes.
func resolveSnapshot(cmd *cobra.Command) (*config.Snapshot, error) {
	path, _ := cmd.Flags().GetString("config")
	noEnv, _ := cmd.Flags().GetBool("no-env")

	snap, err := config.Resolve(config.ResolveOptions{
		Path:     path,
		ApplyEnv: !noEnv,
	})
	if err == nil {
		return snap, nil
	}

	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, exitError(exitFileNotFound, "config file not found: %s", path)
	}
	var vErr *config.ValidationError
	if errors.As(err, &vErr) {
		return nil, exitError(exitValidation, "invalid configuration: %v", vErr)
	}
	return nil, exitError(exitRuntime, "loading configuration: %v", err)
}

// commandLogger builds the logger for a subcommand from the resolved
// logging section and the root verbosity flags.
func commandLogger(cmd *cobra.Command, cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	logger, closeFn, err := newLogger(cfg, verbose, quiet)
	if err != nil {
		return nil, nil, exitError(exitRuntime, "configuring logging: %v", err)
	}
	return logger, closeFn, nil
}
