package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rag-console/internal/api"
	"rag-console/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var dir string
	var stageOnly bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and upload files dropped into it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd); err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.Watch.Dir
			}
			if dir == "" {
				return errors.New("no watch directory given (flag --dir or watch.dir in config)")
			}

			ctx := cmd.Context()
			manager, _ := a.lifecycle(ctx)

			w, err := watcher.New(manager, a.cfg.Watch.Extensions)
			if err != nil {
				return err
			}
			defer w.Stop()

			staged, err := w.Watch(ctx, dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (ctrl-c to stop)\n", dir)
			for f := range staged {
				fmt.Fprintf(out, "staged %s\n", f.Name)
				if stageOnly {
					continue
				}
				result, err := manager.CommitStaged(ctx)
				var batchErr *api.BatchError
				switch {
				case errors.As(err, &batchErr):
					fmt.Fprintf(out, "partial upload: %v\n", batchErr)
				case err != nil:
					log.Error().Err(err).Msg("upload failed, files remain staged")
				default:
					fmt.Fprintf(out, "%s\n", result.Message)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to watch")
	cmd.Flags().BoolVar(&stageOnly, "stage-only", false, "stage files without uploading")
	return cmd
}
