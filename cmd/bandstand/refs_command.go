package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bandstand/internal/catalog"
	"bandstand/internal/library"
	"bandstand/internal/provenance"
	"bandstand/internal/refcheck"
	"bandstand/internal/research"
)

func newRefsCommand(ctx *commandContext) *cobra.Command {
	refsCmd := &cobra.Command{
		Use:   "refs",
		Short: "List, verify, and purge external catalog references",
	}
	refsCmd.AddCommand(newRefsListCommand(ctx))
	refsCmd.AddCommand(newRefsVerifyCommand(ctx))
	refsCmd.AddCommand(newRefsPurgeCommand(ctx))
	return refsCmd
}

func newRefsListCommand(ctx *commandContext) *cobra.Command {
	var catalogName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored external references",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			refs, err := store.ListRefs(cmd.Context(), catalogName)
			if err != nil {
				return err
			}
			if len(refs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No external references")
				return nil
			}

			rows := make([][]string, 0, len(refs))
			for _, ref := range refs {
				flags := ""
				if ref.Ambiguous {
					flags = "ambiguous"
				}
				verified := ""
				if ref.VerifiedAt != nil {
					verified = ref.VerifiedAt.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					strconv.FormatInt(ref.ID, 10),
					ref.EntityType,
					strconv.FormatInt(ref.EntityID, 10),
					ref.Catalog,
					ref.ExternalID,
					flags,
					verified,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Ref", "Entity", "ID", "Catalog", "External ID", "Flags", "Verified"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogName, "catalog", "", "Restrict to one catalog")
	return cmd
}

func newRefsVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <ref-id>",
		Short: "Verify one reference against its catalog page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefAction(ctx, cmd, args, false)
		},
		Args: cobra.ExactArgs(1),
	}
}

func newRefsPurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <ref-id>",
		Short: "Re-verify a reference and delete it if invalid",
		Long: "The only destructive reference operation. The reference is re-verified\n" +
			"first and survives when the page checks out or the catalog is down.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefAction(ctx, cmd, args, true)
		},
		Args: cobra.ExactArgs(1),
	}
}

func runRefAction(ctx *commandContext, cmd *cobra.Command, args []string, purge bool) error {
	refID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ref id %q", args[0])
	}
	store, err := ctx.ensureStore()
	if err != nil {
		return err
	}
	checker, err := buildChecker(ctx, store)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	if purge {
		purged, verdict, err := checker.Purge(cmd.Context(), refID)
		if err != nil {
			return err
		}
		if purged {
			fmt.Fprintf(stdout, "Purged ref %d: %s\n", refID, verdict.Reason)
		} else {
			fmt.Fprintf(stdout, "Kept ref %d: %s\n", refID, describeVerdict(verdict))
		}
		return nil
	}

	verdict, err := checker.VerifyByID(cmd.Context(), refID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Ref %d: %s\n", refID, describeVerdict(verdict))
	return nil
}

func buildChecker(ctx *commandContext, store *library.Store) (*refcheck.Checker, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	runner, err := research.NewRunner(cfg, store, nil)
	if err != nil {
		return nil, err
	}
	checker := refcheck.New(store, provenance.New(store), nil)
	checker.RegisterFetcher(catalog.NameArchive, runner.Archive())
	checker.RegisterFetcher(catalog.NameEncyclopedia, runner.Encyclopedia())
	return checker, nil
}

func describeVerdict(verdict *refcheck.Verdict) string {
	state := "invalid"
	if verdict.Valid {
		state = "valid"
	}
	detail := fmt.Sprintf("%s (%s confidence)", state, verdict.Confidence)
	if verdict.Unavailable {
		detail += ", catalog unavailable; will re-verify later"
	}
	if verdict.Reason != "" {
		detail += " - " + verdict.Reason
	}
	return detail
}
