package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"photokeep/internal/config"
	"photokeep/internal/library"
	"photokeep/internal/logging"
	"photokeep/internal/migration"
	"photokeep/internal/store"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Re-index the library under the current fingerprint format",
		Long: "Runs the one-time format migration: purges local-only photos from the " +
			"fingerprint index, recomputes fingerprints for uploaded photos, and folds " +
			"local-only duplicates into their server-confirmed counterparts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				lib := library.NewFSLibrary(cfg, st, logger)

				report, err := migration.New(st, lib, logger).Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("run backfill: %w", err)
				}

				rows := [][]string{
					{"Indexed", strconv.Itoa(report.Indexed)},
					{"Purged from index", strconv.Itoa(report.Purged)},
					{"Merged", strconv.Itoa(report.Merged)},
					{"Ambiguous, skipped", strconv.Itoa(report.AmbiguousSkipped)},
					{"Undecodable, skipped", strconv.Itoa(report.DecodeSkipped)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Result", "Photos"}, rows, 1))
				return nil
			})
		},
	}
}
