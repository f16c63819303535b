package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bandstand/internal/library"
	"bandstand/internal/research"
)

func newResearchCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "research [song-id]",
		Short: "Queue a song for catalog research",
		Long: "Queues a song for the daemon's research worker. The queue is durable:\n" +
			"the job survives daemon restarts and runs when the worker reaches it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			var songID int64
			switch {
			case len(args) == 1:
				songID, err = strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid song id %q", args[0])
				}
			case title != "":
				song, err := store.FindSongByTitle(cmd.Context(), title)
				if err != nil {
					return err
				}
				if song == nil {
					song, err = store.CreateSong(cmd.Context(), title, "", "cli")
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Created song %d: %s\n", song.ID, song.Title)
				}
				songID = song.ID
			default:
				return fmt.Errorf("provide a song id or --title")
			}

			jobs := research.NewStore(store)
			job, err := jobs.Enqueue(cmd.Context(), library.EntitySong, songID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued research job %d for song %d (status %s)\n",
				job.ID, job.EntityID, job.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Song title to research (created if missing)")
	return cmd
}
