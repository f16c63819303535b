package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bandstand/internal/dedup"
)

func newDuplicatesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates <song-id>",
		Short: "Suggest duplicate recordings of a song",
		Long: "Groups recordings that look like the same performance: same leader,\n" +
			"overlapping personnel, similar length, recording dates within a day.\n" +
			"Suggestions only; nothing changes until `bandstand merge` is run.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			songID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid song id %q", args[0])
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			groups, err := dedup.New(store, cfg.Matching, nil).FindCandidates(cmd.Context(), songID)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No duplicate candidates")
				return nil
			}

			rows := make([][]string, 0, len(groups))
			for _, group := range groups {
				dups := make([]string, 0, len(group.DuplicateIDs))
				for _, id := range group.DuplicateIDs {
					dups = append(dups, strconv.FormatInt(id, 10))
				}
				rows = append(rows, []string{
					strconv.FormatInt(group.MasterID, 10),
					strings.Join(dups, ", "),
					group.Rationale,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Master", "Duplicates", "Rationale"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft}))
			return nil
		},
	}
}
