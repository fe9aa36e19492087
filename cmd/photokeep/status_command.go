package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"photokeep/internal/config"
	"photokeep/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show photo, index, and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.Stats()
				if err != nil {
					return fmt.Errorf("collect store stats: %w", err)
				}

				rows := [][]string{
					{"Photos", strconv.Itoa(stats.Photos)},
					{"Quarantined", strconv.Itoa(stats.Quarantined)},
					{"Index entries", strconv.Itoa(stats.IndexEntries)},
					{"Queued for verification", strconv.Itoa(stats.Queued)},
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, 1))
				fmt.Fprintf(out, "Store: %s\n", st.Path())
				fmt.Fprintf(out, "Library: %s\n", cfg.Paths.LibraryDir)
				fmt.Fprintf(out, "Migration enabled: %s\n", yesNo(cfg.Migration.Enabled))
				return nil
			})
		},
	}
}
