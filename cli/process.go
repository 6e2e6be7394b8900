package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/agent"
	"github.com/windlass-dev/windlass/dispatch"
)

// NewProcessCmd creates the "process" subcommand: dispatch a single
// request and print the result envelope.
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <tool> <operation>",
		Short: "Dispatch one request to a tool and print the result",
		Args:  cobra.ExactArgs(2),
		RunE:  runProcess,
	}
	addConfigFlags(cmd)
	cmd.Flags().StringP("params", "p", "", "Operation parameters as a JSON object")
	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	snap, err := resolveSnapshot(cmd)
	if err != nil {
		return err
	}
	// The one-shot path never serves HTTP.
	snap.Monitoring.Enabled = false

	params, err := parseParamsFlag(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := commandLogger(cmd, snap.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ag, err := agent.New(agent.Config{
		Snapshot: *snap,
		Logger:   logger,
	})
	if err != nil {
		return exitError(exitRuntime, "creating agent: %v", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = ag.Cleanup(cleanupCtx)
	}()

	res := ag.Process(cmd.Context(), dispatch.Request{
		Tool:       args[0],
		Operation:  args[1],
		Parameters: params,
	})

	encoded, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "encoding result: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

	if !res.OK() {
		return exitError(exitRuntime, "dispatch failed: %s", res.Error)
	}
	return nil
}

func parseParamsFlag(cmd *cobra.Command) (map[string]any, error) {
	raw, _ := cmd.Flags().GetString("params")
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, exitError(exitInputParse, "invalid --params JSON: %v", err)
	}
	return params, nil
}
