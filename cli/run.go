package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/agent"
	"github.com/windlass-dev/windlass/dispatch"
)

// NewRunCmd creates the "run" subcommand: an interactive dispatch loop
// reading requests from stdin.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interactive dispatch session",
		Long: `Run an interactive session. Each line is a request:

  <tool> <operation> [json-params]

Type "tools" to list registered tools, "exit" or "quit" to leave.`,
		RunE: runInteractive,
	}
	addConfigFlags(cmd)
	return cmd
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	snap, err := resolveSnapshot(cmd)
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
	if err := ag.Setup(cmd.Context()); err != nil {
		return exitError(exitRuntime, "agent setup: %v", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = ag.Cleanup(cleanupCtx)
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s interactive session (state: %s)\n", ag.Name(), ag.Version(), ag.State())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "windlass> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit", line == "quit":
			return nil
		case line == "tools":
			for _, name := range ag.Registry().Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			continue
		}

		req, err := parseSessionLine(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		res := ag.Process(cmd.Context(), req)
		encoded, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			fmt.Fprintf(out, "error: encoding result: %v\n", err)
			continue
		}
		fmt.Fprintln(out, string(encoded))
	}
}

// parseSessionLine splits "<tool> <operation> [json-params]".
func parseSessionLine(line string) (dispatch.Request, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return dispatch.Request{}, fmt.Errorf("expected: <tool> <operation> [json-params]")
	}
	req := dispatch.Request{Tool: fields[0], Operation: fields[1]}
	if len(fields) == 3 && strings.TrimSpace(fields[2]) != "" {
		if err := json.Unmarshal([]byte(fields[2]), &req.Parameters); err != nil {
			return dispatch.Request{}, fmt.Errorf("invalid params JSON: %w", err)
		}
	}
	return req, nil
}
