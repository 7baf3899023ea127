package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/policyminer/internal/miner"
	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/record"
	"github.com/roach88/policyminer/internal/render"
	"github.com/roach88/policyminer/internal/store"
)

// summaryRules is how many rules extract prints after mining.
const summaryRules = 10

// DefaultOutputName is the policy file written next to the logs when
// --output is not given.
const DefaultOutputName = "policies.json"

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions
	Logs   string
	DB     string
	Output string
	SaveDB string

	// Clock overrides the miner clock (for testing).
	// If nil, defaults to miner.WallClock.
	Clock miner.Clock
}

// ExtractResult is the JSON payload of the extract command.
type ExtractResult struct {
	Parsed   int              `json:"parsed"`
	Rejected int              `json:"rejected"`
	Problems []record.Problem `json:"problems,omitempty"`
	Policies int              `json:"policies"`
	Output   string           `json:"output"`
	RunID    string           `json:"run_id,omitempty"`
	Digest   string           `json:"digest"`
	RuleSet  *policy.RuleSet  `json:"rule_set"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	return newExtractCommand(&ExtractOptions{RootOptions: rootOpts})
}

func newExtractCommand(opts *ExtractOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Mine policies from a behavior log",
		Long: `Mine governance policies from a JSONL behavior log, or from the
records ingested into a policyminer database.

Malformed log lines are skipped and counted. The mined policy set is
written as JSON (default: policies.json next to the logs) and the top
policies are printed.

Examples:
  policyminer extract --logs behavior.jsonl --min-confidence 0.7
  policyminer extract --logs behavior.jsonl --save-db policies.db
  policyminer extract --db policies.db --output mined.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(opts, cmd)
		},
	}

	def := miner.DefaultThresholds()
	cmd.Flags().StringVar(&opts.Logs, "logs", "", "path to a JSONL behavior log")
	cmd.Flags().StringVar(&opts.DB, "db", "", "read records from a policyminer database instead of --logs")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output JSON path (default: policies.json next to the input)")
	cmd.Flags().StringVar(&opts.SaveDB, "save-db", "", "also persist the mined policy set to this database")
	cmd.Flags().Float64("min-support", def.MinSupport, "minimum support threshold (0.0 - 1.0)")
	cmd.Flags().Float64("min-confidence", def.MinConfidence, "minimum confidence threshold (0.0 - 1.0)")
	cmd.Flags().Float64("min-lift", def.MinLift, "minimum lift threshold")
	cmd.Flags().String("name", policy.DefaultName, "policy set name")
	cmd.MarkFlagsOneRequired("logs", "db")
	cmd.MarkFlagsMutuallyExclusive("logs", "db")

	return cmd
}

func runExtract(opts *ExtractOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}

	parsed, source, err := loadExtractInput(ctx, opts, formatter)
	if err != nil {
		return err
	}
	for _, p := range parsed.Problems {
		formatter.VerboseLog("Skipped line %d: %s", p.Line, p.Reason)
	}

	minerOpts := []miner.Option{miner.WithLogger(slog.Default())}
	if opts.Clock != nil {
		minerOpts = append(minerOpts, miner.WithClock(opts.Clock))
	}
	m, err := miner.New(cfg.Thresholds, minerOpts...)
	if err != nil {
		return formatter.Fail(ErrCodeInvalidInput, "invalid thresholds", err)
	}
	rs := m.Mine(parsed.Records, cfg.Name)

	digest, err := policy.Digest(rs)
	if err != nil {
		return formatter.Fail(ErrCodeGeneric, "failed to digest policy set", err)
	}

	output := opts.Output
	if output == "" {
		output = filepath.Join(filepath.Dir(source), DefaultOutputName)
	}
	if err := policy.WriteFile(output, rs); err != nil {
		return formatter.Fail(ErrCodeWriteFailed, "failed to write policy set", err)
	}

	result := ExtractResult{
		Parsed:   len(parsed.Records),
		Rejected: parsed.Rejected,
		Problems: parsed.Problems,
		Policies: len(rs.Rules),
		Output:   output,
		Digest:   digest,
		RuleSet:  rs,
	}

	if opts.SaveDB != "" {
		result.RunID, err = saveRuleSet(ctx, opts.SaveDB, rs, cfg.Thresholds)
		if err != nil {
			return formatter.Fail(ErrCodeStore, "failed to store policy set", err)
		}
	}

	slog.Info("extraction complete",
		"source", source,
		"parsed", result.Parsed,
		"rejected", result.Rejected,
		"policies", result.Policies,
		"digest", digest,
	)

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Parsed %d valid log entries.\n", result.Parsed)
	if result.Rejected > 0 {
		fmt.Fprintf(w, "Skipped %d malformed entries.\n", result.Rejected)
	}
	fmt.Fprintf(w, "Mined %d policies.\n", result.Policies)
	fmt.Fprintf(w, "Saved policy set to %s\n", output)
	if result.RunID != "" {
		fmt.Fprintf(w, "Stored run %s in %s\n", result.RunID, opts.SaveDB)
	}
	fmt.Fprintln(w)
	return render.Text(w, rs, summaryRules)
}

// loadExtractInput reads records from --logs or --db and returns them with
// the path they came from.
func loadExtractInput(ctx context.Context, opts *ExtractOptions, formatter *OutputFormatter) (record.ParseResult, string, error) {
	if opts.Logs != "" {
		parsed, err := record.NewParser().ParseFile(opts.Logs)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return record.ParseResult{}, "", formatter.Fail(ErrCodeNotFound, fmt.Sprintf("logs file not found: %s", opts.Logs), nil)
			}
			return record.ParseResult{}, "", formatter.Fail(ErrCodeReadFailed, "failed to read logs", err)
		}
		return parsed, opts.Logs, nil
	}

	st, err := openExistingStore(opts.DB, formatter)
	if err != nil {
		return record.ParseResult{}, "", err
	}
	defer st.Close()

	recs, err := st.ReadRecords(ctx)
	if err != nil {
		return record.ParseResult{}, "", formatter.Fail(ErrCodeStore, "failed to read records", err)
	}
	return record.ParseResult{Records: recs}, opts.DB, nil
}

func saveRuleSet(ctx context.Context, path string, rs *policy.RuleSet, th miner.Thresholds) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	return st.SaveRuleSet(ctx, rs, th)
}

// openExistingStore opens a database that must already exist. Open would
// otherwise create an empty one for a mistyped path.
func openExistingStore(path string, formatter *OutputFormatter) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, formatter.Fail(ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ErrCodeStore, "failed to open database", err)
	}
	return st, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (as in some tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
