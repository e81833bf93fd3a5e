package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Parse and embed all stored documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			manager, _ := a.lifecycle(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Processing documents... this may take a while")
			result, err := manager.Ingest(ctx)
			if err != nil {
				return fmt.Errorf("ingestion failed: %v", err)
			}
			fmt.Fprintf(out, "%s\n", result.Message)
			fmt.Fprintf(out, "  documents loaded: %d\n  chunks created:   %d\n",
				result.DocumentsLoaded, result.ChunksCreated)
			return nil
		},
	}
}
