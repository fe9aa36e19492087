package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photokeep/internal/config"
	"photokeep/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the duplicate verification queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List photos awaiting verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				ids, err := st.QueuedIDs()
				if err != nil {
					return fmt.Errorf("list queue: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintln(out, "Queue is empty.")
					return nil
				}

				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					row := []string{id, "", ""}
					if p, err := st.GetPhoto(id); err == nil {
						row[1] = p.AssetURL
						row[2] = yesNo(p.Uploaded)
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(out, renderTable([]string{"Photo", "Asset URL", "Uploaded"}, rows))
				return nil
			})
		},
	}
}
