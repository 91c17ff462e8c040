package cli

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/moodgraph/internal/app"
	"github.com/ewilliams-labs/moodgraph/internal/core/services"
)

func newRebuildGraphCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-graph",
		Short: "Discard the cached graph and rebuild it from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, root, (*services.Orchestrator).RebuildGraph)
		},
	}
}

func newRefreshCatalogCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-catalog",
		Short: "Refetch the catalog from Spotify and merge new tracks into the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, root, (*services.Orchestrator).RefreshCatalog)
		},
	}
}

func runStats(cmd *cobra.Command, root *rootOptions, op func(*services.Orchestrator, context.Context) (services.GraphStats, error)) error {
	return root.withApp(cmd.Context(), func(a *app.App) error {
		stats, err := op(a.Orchestrator, cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if root.jsonOut {
			return json.NewEncoder(out).Encode(stats)
		}
		fmt.Fprintf(out, "snapshot:  %s\n", stats.Snapshot)
		fmt.Fprintf(out, "tracks:    %d\n", stats.Tracks)
		fmt.Fprintf(out, "nodes:     %d\n", stats.Nodes)
		fmt.Fprintf(out, "edges:     %d\n", stats.Edges)
		fmt.Fprintf(out, "isolated:  %d\n", stats.Isolated)
		fmt.Fprintf(out, "threshold: %.2f\n", stats.Threshold)
		return nil
	})
}
