package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/agent"
	"github.com/windlass-dev/windlass/telemetry"
)

// NewServeCmd creates the "serve" subcommand: run the agent until a
// shutdown signal arrives.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent until interrupted",
		RunE:  runServe,
	}
	addConfigFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	snap, err := resolveSnapshot(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := commandLogger(cmd, snap.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	tel, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		ServiceName:    snap.Name,
		ServiceVersion: snap.Version,
		OTLPEndpoint:   snap.Monitoring.OTLPEndpoint,
	})
	if err != nil {
		return exitError(exitRuntime, "initializing telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	ag, err := agent.New(agent.Config{
		Snapshot:  *snap,
		Telemetry: tel,
		Logger:    logger,
	})
	if err != nil {
		return exitError(exitRuntime, "creating agent: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s starting\n", snap.Name, snap.Version)
	if err := ag.Run(cmd.Context()); err != nil {
		return exitError(exitRuntime, "agent run: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Shutdown complete")
	return nil
}
