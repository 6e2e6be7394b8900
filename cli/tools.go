package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/windlass-dev/windlass/memory"
	"github.com/windlass-dev/windlass/tools"
)

// NewToolsCmd creates the "tools" subcommand: list the tools the
// resolved configuration would register.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the current configuration registers",
		RunE:  runTools,
	}
	addConfigFlags(cmd)
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	snap, err := resolveSnapshot(cmd)
	if err != nil {
		return err
	}

	// A throwaway store so the memory tool shows up when enabled.
	var store memory.Store
	if snap.Memory.Enabled {
		store = memory.NewMemStore(snap.Memory.MaxEntries)
	}

	catalog := tools.NewCatalog(*snap, store)
	named, err := catalog.Tools(cmd.Context())
	if err != nil {
		return exitError(exitRuntime, "listing tools: %v", err)
	}

	if len(named) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tools registered (tools.auto_discover is off)")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREADY")
	for _, nt := range named {
		fmt.Fprintf(w, "%s\t%t\n", nt.Name, nt.Tool.IsReady())
	}
	return w.Flush()
}
