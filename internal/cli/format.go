package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/query"
	"github.com/roach88/policyminer/internal/render"
	"github.com/roach88/policyminer/internal/store"
)

// FormatOptions holds flags for the format command.
type FormatOptions struct {
	*RootOptions
	Policies     string
	DB           string
	Run          string
	OutputFormat string
	Where        string
}

// FormatResult is the JSON payload of the format command.
type FormatResult struct {
	Format   string `json:"format"`
	Policies int    `json:"policies"`
	Rendered string `json:"rendered"`
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render a policy set as text, Markdown or JSON",
		Long: `Render a mined policy set from a JSON file or a policyminer database.

--where filters rules with a CEL expression over the variables id, key,
value, action, support, confidence and lift. Rule ids are kept as mined.

Examples:
  policyminer format --policies policies.json --output-format markdown
  policyminer format --db policies.db --max-policies 5
  policyminer format --db policies.db --run <run-id> --where 'lift > 2.0'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Policies, "policies", "", "path to a JSON policies file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "read the policy set from a policyminer database")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run id to read from --db (default: latest)")
	cmd.Flags().StringVar(&opts.OutputFormat, "output-format", render.FormatText, "output format (text|markdown|json)")
	cmd.Flags().Int("max-policies", render.DefaultMaxRules, "maximum number of policies to render")
	cmd.Flags().StringVar(&opts.Where, "where", "", "CEL filter expression")
	cmd.MarkFlagsOneRequired("policies", "db")
	cmd.MarkFlagsMutuallyExclusive("policies", "db")

	return cmd
}

func runFormat(opts *FormatOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if !render.IsValidFormat(opts.OutputFormat) {
		return formatter.Fail(ErrCodeInvalidInput,
			fmt.Sprintf("invalid output format %q: must be one of %v", opts.OutputFormat, render.Formats), nil)
	}
	if opts.Run != "" && opts.DB == "" {
		return formatter.Fail(ErrCodeInvalidInput, "--run requires --db", nil)
	}

	cfg, err := loadConfig(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}

	rs, err := loadPolicySet(cmd, opts, formatter)
	if err != nil {
		return err
	}

	if opts.Where != "" {
		pred, err := query.Compile(opts.Where)
		if err != nil {
			return formatter.Fail(ErrCodeQuery, "invalid --where expression", err)
		}
		rs, err = query.FilterSet(rs, pred)
		if err != nil {
			return formatter.Fail(ErrCodeQuery, "failed to evaluate --where expression", err)
		}
		formatter.VerboseLog("Filter %q kept %d policies", pred, len(rs.Rules))
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, opts.OutputFormat, rs, cfg.MaxPolicies); err != nil {
		return formatter.Fail(ErrCodeGeneric, "failed to render policy set", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(FormatResult{
			Format:   strings.ToLower(opts.OutputFormat),
			Policies: len(rs.Rules),
			Rendered: buf.String(),
		})
	}
	_, err = formatter.Writer.Write(buf.Bytes())
	return err
}

// loadPolicySet reads the policy set named by --policies or --db/--run.
func loadPolicySet(cmd *cobra.Command, opts *FormatOptions, formatter *OutputFormatter) (*policy.RuleSet, error) {
	if opts.Policies != "" {
		rs, err := policy.ReadFile(opts.Policies)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, formatter.Fail(ErrCodeNotFound, fmt.Sprintf("policies file not found: %s", opts.Policies), nil)
			}
			return nil, formatter.Fail(ErrCodeReadFailed, "failed to load policy set", err)
		}
		return rs, nil
	}

	st, err := openExistingStore(opts.DB, formatter)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	ctx := commandContext(cmd)
	var rs *policy.RuleSet
	if opts.Run != "" {
		rs, err = st.LoadRuleSet(ctx, opts.Run)
	} else {
		_, rs, err = st.LatestRuleSet(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		if opts.Run != "" {
			return nil, formatter.Fail(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.Run), nil)
		}
		return nil, formatter.Fail(ErrCodeNotFound, fmt.Sprintf("no policy sets stored in %s", opts.DB), nil)
	}
	if err != nil {
		return nil, formatter.Fail(ErrCodeStore, "failed to load policy set", err)
	}
	return rs, nil
}
