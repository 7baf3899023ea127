package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/policyminer/internal/record"
	"github.com/roach88/policyminer/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Logs string
	DB   string
}

// IngestResult is the JSON payload of the ingest command.
type IngestResult struct {
	Parsed     int              `json:"parsed"`
	Inserted   int              `json:"inserted"`
	Duplicates int              `json:"duplicates"`
	Rejected   int              `json:"rejected"`
	Problems   []record.Problem `json:"problems,omitempty"`
	Total      int              `json:"total"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a behavior log into a policyminer database",
		Long: `Parse a JSONL behavior log and store its valid records in a SQLite
database, creating it if needed. Records already present (by log_id) are
skipped, so ingesting the same log twice is harmless.

Example:
  policyminer ingest --logs behavior.jsonl --db policies.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Logs, "logs", "", "path to a JSONL behavior log (required)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("logs")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runIngest(opts *IngestOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	if _, err := loadConfig(opts.RootOptions, cmd, formatter); err != nil {
		return err
	}

	parsed, err := record.NewParser().ParseFile(opts.Logs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return formatter.Fail(ErrCodeNotFound, fmt.Sprintf("logs file not found: %s", opts.Logs), nil)
		}
		return formatter.Fail(ErrCodeReadFailed, "failed to read logs", err)
	}
	for _, p := range parsed.Problems {
		formatter.VerboseLog("Skipped line %d: %s", p.Line, p.Reason)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return formatter.Fail(ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	inserted, err := st.WriteRecords(ctx, parsed.Records)
	if err != nil {
		return formatter.Fail(ErrCodeStore, "failed to store records", err)
	}
	total, err := st.CountRecords(ctx)
	if err != nil {
		return formatter.Fail(ErrCodeStore, "failed to count records", err)
	}

	result := IngestResult{
		Parsed:     len(parsed.Records),
		Inserted:   inserted,
		Duplicates: len(parsed.Records) - inserted,
		Rejected:   parsed.Rejected,
		Problems:   parsed.Problems,
		Total:      total,
	}
	slog.Info("ingest complete", "db", opts.DB, "inserted", inserted, "total", total)

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Parsed %d valid log entries.\n", result.Parsed)
	if result.Rejected > 0 {
		fmt.Fprintf(w, "Skipped %d malformed entries.\n", result.Rejected)
	}
	fmt.Fprintf(w, "Stored %d new records (%d already present). %s now holds %d records.\n",
		result.Inserted, result.Duplicates, opts.DB, result.Total)
	return nil
}
