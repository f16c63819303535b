package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bandstand/internal/dedup"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <master-id> <duplicate-id>...",
		Short: "Merge duplicate recordings into a master",
		Long: "Moves release links, credits and external references from the duplicates\n" +
			"to the master inside one transaction, then deletes the duplicates.\n" +
			"Rows the master already holds are skipped and reported.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid recording id %q", arg)
				}
				ids = append(ids, id)
			}

			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report, err := dedup.New(store, cfg.Matching, nil).Merge(cmd.Context(), ids[0], ids[1:])
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Merged %d recording(s) into %d\n", report.Deleted, ids[0])
			fmt.Fprintf(stdout, "  releases migrated: %d\n", report.ReleasesMigrated)
			fmt.Fprintf(stdout, "  credits migrated:  %d\n", report.CreditsMigrated)
			fmt.Fprintf(stdout, "  refs migrated:     %d\n", report.RefsMigrated)
			if report.SkippedConflicts > 0 {
				fmt.Fprintf(stdout, "  skipped (already on master): %d\n", report.SkippedConflicts)
			}
			return nil
		},
	}
}
