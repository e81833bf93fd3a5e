package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rag-console/internal/helper"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show documents, embeddings readiness and pipeline details",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			manager, mirror := a.lifecycle(ctx)

			out := cmd.OutOrStdout()
			stored := manager.Stored()
			fmt.Fprintf(out, "Documents: %d\n", len(stored))
			for _, d := range stored {
				fmt.Fprintf(out, "  %s (%s)\n", d.Filename, helper.FormatSize(d.SizeBytes))
			}
			fmt.Fprintf(out, "Embeddings ready: %t\n", manager.EmbeddingsReady())

			if snapshot, ok := mirror.Snapshot(); ok {
				fmt.Fprintln(out, "\nPipeline:")
				helper.PrettyPrint(snapshot)
			} else {
				fmt.Fprintln(out, "\nPipeline details unavailable")
			}
			return nil
		},
	}
}
