package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bandstand/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog readiness and library statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
					if result.Fatal {
						kind = statusError
					}
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			stats, err := store.LibraryStats(cmd.Context())
			if err != nil {
				return err
			}

			for _, line := range renderSectionHeader("Library", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := [][]string{
				{"Songs", strconv.FormatInt(stats.Songs, 10)},
				{"Performers", strconv.FormatInt(stats.Performers, 10)},
				{"Recordings", strconv.FormatInt(stats.Recordings, 10)},
				{"Releases", strconv.FormatInt(stats.Releases, 10)},
				{"External refs", strconv.FormatInt(stats.ExternalRefs, 10)},
			}
			fmt.Fprintln(stdout, renderTable([]string{"Entity", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
