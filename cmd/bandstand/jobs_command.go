package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bandstand/internal/research"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List research jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			jobs, err := research.NewStore(store).ListJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No research jobs")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				detail := job.Phase
				if job.Status == research.StatusCompleted && len(job.FailedPhases) > 0 {
					detail = "failed: " + strings.Join(job.FailedPhases, ", ")
				}
				if job.Status == research.StatusFailed {
					detail = job.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					strconv.FormatInt(job.EntityID, 10),
					job.EntityName,
					string(job.Status),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Song", "Title", "Status", "Detail"}, rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum jobs to list")
	return cmd
}
