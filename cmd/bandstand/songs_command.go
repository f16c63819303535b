package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSongsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "songs",
		Short: "List songs in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			songs, err := store.ListSongs(cmd.Context())
			if err != nil {
				return err
			}
			if len(songs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Library is empty")
				return nil
			}

			rows := make([][]string, 0, len(songs))
			for _, song := range songs {
				rows = append(rows, []string{
					strconv.FormatInt(song.ID, 10),
					song.Title,
					song.Composer,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Composer"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft}))
			return nil
		},
	}
}
