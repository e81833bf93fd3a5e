package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"rag-console/internal/export"
	"rag-console/internal/history"
)

func newExportCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export [conversation-id]",
		Short: "Export a past conversation to HTML, or list conversations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := history.Open(a.cfg.HistoryDB, a.cfg.Debug)
			if err != nil {
				return fmt.Errorf("failed to open history store: %v", err)
			}
			defer store.Close()
			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("failed to init history store: %v", err)
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				convs, err := store.Conversations(ctx)
				if err != nil {
					return err
				}
				if len(convs) == 0 {
					fmt.Fprintln(out, "No conversations recorded yet")
					return nil
				}
				for _, c := range convs {
					fmt.Fprintf(out, "%4d  %s  [%s]  %s\n",
						c.ID, c.CreatedAt.Format("2006-01-02 15:04"), c.Tone, c.Title)
				}
				return nil
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}
			msgs, err := store.Messages(ctx, id)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return fmt.Errorf("conversation %d not found", id)
			}

			if outPath == "" {
				outPath = fmt.Sprintf("conversation-%d.html", id)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := export.RenderHTML(history.Turns(msgs), f); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default conversation-<id>.html)")
	return cmd
}
