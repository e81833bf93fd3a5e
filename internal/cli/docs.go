package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rag-console/internal/helper"
)

func newDocsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List and manage stored documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			manager, _ := a.lifecycle(ctx)
			if err := manager.Refresh(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stored := manager.Stored()
			if len(stored) == 0 {
				fmt.Fprintln(out, "No documents uploaded yet")
				return nil
			}
			for _, d := range stored {
				fmt.Fprintf(out, "%-40s %10s  %s\n", d.Filename, helper.FormatSize(d.SizeBytes), d.Extension)
			}
			if manager.EmbeddingsReady() {
				fmt.Fprintln(out, "\nEmbeddings ready")
			} else {
				fmt.Fprintln(out, "\nEmbeddings not built yet, run `rag-console ingest`")
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <filename>",
		Short: "Delete one stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			manager, _ := a.lifecycle(ctx)
			if err := manager.Remove(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete %s: %v", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
