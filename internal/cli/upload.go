package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rag-console/internal/api"
	"rag-console/internal/docs"
)

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Stage files and upload them as one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			manager, _ := a.lifecycle(ctx)

			for _, path := range args {
				if _, err := manager.StageFromPath(path); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			result, err := manager.CommitStaged(ctx)
			var batchErr *api.BatchError
			switch {
			case errors.As(err, &batchErr):
				fmt.Fprintf(out, "%s\n", result.Message)
				for _, e := range batchErr.Errors {
					fmt.Fprintf(out, "  rejected: %s\n", e)
				}
				for _, f := range manager.Pending() {
					fmt.Fprintf(out, "  still staged: %s\n", docs.DescribePending(f))
				}
				return nil
			case err != nil:
				return fmt.Errorf("upload failed: %v", err)
			}
			fmt.Fprintf(out, "%s\n", result.Message)
			for _, u := range result.Uploaded {
				fmt.Fprintf(out, "  uploaded: %s\n", u.Filename)
			}
			return nil
		},
	}
}
