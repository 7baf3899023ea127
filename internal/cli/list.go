package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/policyminer/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	DB string
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Runs []store.RunSummary `json:"runs"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List policy sets stored in a database",
		Long: `List every policy set persisted with extract --save-db, oldest first.

Example:
  policyminer list --db policies.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := loadConfig(opts.RootOptions, cmd, formatter); err != nil {
		return err
	}

	st, err := openExistingStore(opts.DB, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuleSets(commandContext(cmd))
	if err != nil {
		return formatter.Fail(ErrCodeStore, "failed to list policy sets", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(ListResult{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No policy sets stored.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tNAME\tLOGS\tPOLICIES\tGENERATED\tDIGEST")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Name, r.SourceLogs, r.RuleCount, r.GeneratedAt, shortDigest(r.Digest))
	}
	return tw.Flush()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
