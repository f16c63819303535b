package main

import (
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bandstand/internal/provenance"
)

func newCurateCommand(ctx *commandContext) *cobra.Command {
	curateCmd := &cobra.Command{
		Use:   "curate",
		Short: "Set, clear, or inspect curated field values",
		Long: "Curated values sit in a layer above crawled catalog data and win until\n" +
			"cleared. Re-running research never overwrites a curated value.",
	}
	curateCmd.AddCommand(newCurateSetCommand(ctx))
	curateCmd.AddCommand(newCurateClearCommand(ctx))
	curateCmd.AddCommand(newCurateShowCommand(ctx))
	return curateCmd
}

func newCurateSetCommand(ctx *commandContext) *cobra.Command {
	var curator string

	cmd := &cobra.Command{
		Use:   "set <entity-type> <id> <field> <value>",
		Short: "Set a curated value for one field",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id %q", args[1])
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if curator == "" {
				curator = currentUser()
			}
			fields := provenance.New(store)
			if err := fields.SetCurated(cmd.Context(), args[0], id, args[2], args[3], curator); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Curated %s %d %s = %q (by %s)\n", args[0], id, args[2], args[3], curator)
			return nil
		},
	}

	cmd.Flags().StringVar(&curator, "by", "", "Curator name recorded with the value (defaults to current user)")
	return cmd
}

func newCurateClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <entity-type> <id> <field>",
		Short: "Clear a curated value, revealing the crawled layer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id %q", args[1])
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if err := provenance.New(store).ClearCurated(cmd.Context(), args[0], id, args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared curated %s %d %s\n", args[0], id, args[2])
			return nil
		},
	}
}

func newCurateShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entity-type> <id> <field>",
		Short: "Show both layers of a field with attribution",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id %q", args[1])
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			layers, err := provenance.New(store).Layers(cmd.Context(), args[0], id, args[2])
			if err != nil {
				return err
			}

			rows := [][]string{
				layerRow("crawled", layers.Crawled),
				layerRow("curated", layers.Curated),
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintln(stdout, renderTable(
				[]string{"Layer", "Value", "By", "At"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			if value, ok := layers.Effective(); ok {
				fmt.Fprintf(stdout, "Effective: %q\n", value)
			} else {
				fmt.Fprintln(stdout, "Effective: (unset)")
			}
			return nil
		},
	}
}

func layerRow(name string, slot provenance.Slot) []string {
	if !slot.Valid {
		return []string{name, "(unset)", "", ""}
	}
	at := ""
	if !slot.At.IsZero() {
		at = slot.At.Local().Format(time.RFC3339)
	}
	return []string{name, slot.Value, slot.By, at}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "operator"
}
