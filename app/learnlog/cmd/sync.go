package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cchalm/learnlog/internal/archive"
	"github.com/cchalm/learnlog/internal/config"
	"github.com/cchalm/learnlog/internal/pipeline"
	"github.com/cchalm/learnlog/internal/record"
	"github.com/cchalm/learnlog/internal/telemetry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Extract, enrich and store every question/answer pair of the archive",
	Long: `Processes the archive one pair at a time. A pair that cannot be stored is reported and
skipped; the remaining pairs are still processed. The command exits with status 1 when any pair
was not stored completely.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	flags := syncCmd.Flags()
	flags.Int("ceiling", 0, "Maximum characters per text field and per overflow block (default 1990)")
	flags.Int("append-batch", 0, "Overflow blocks per append request, at most 50 (default 50)")
	flags.Duration("delay", 0, "Pause after each stored pair (default 500ms)")
	flags.String("model", "", "Model used to generate metadata (default claude-3-5-haiku-latest)")
	flags.Duration("completion-timeout", 0, "Timeout of a single metadata request (default 30s)")
	flags.Bool("dry-run", false, "Write records as JSON files instead of storing them in Notion")
	flags.String("out-dir", "", "Directory for dry-run records")
	flags.Bool("telemetry", false, "Export traces of the run")
	flags.String("otlp-endpoint", "", "OTLP/HTTP collector host:port; traces go to stderr when unset")

	bindFlag(config.KeyCeiling, flags.Lookup("ceiling"))
	bindFlag(config.KeyAppendBatch, flags.Lookup("append-batch"))
	bindFlag(config.KeyDelay, flags.Lookup("delay"))
	bindFlag(config.KeyModel, flags.Lookup("model"))
	bindFlag(config.KeyCompletionTimeout, flags.Lookup("completion-timeout"))
	bindFlag(config.KeyDryRun, flags.Lookup("dry-run"))
	bindFlag(config.KeyOutDir, flags.Lookup("out-dir"))
	bindFlag(config.KeyTelemetryEnabled, flags.Lookup("telemetry"))
	bindFlag(config.KeyTelemetryEndpoint, flags.Lookup("otlp-endpoint"))

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(!cfg.DryRun); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := setupContext()

	arc, err := archive.Load(cfg.Input)
	if err != nil {
		return err
	}

	httpClient := createHTTPClient()
	store, err := createStore(ctx, httpClient)
	if err != nil {
		return err
	}

	tp, err := createTelemetryProvider(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to flush telemetry", "error", err)
		}
	}()

	runID := telemetry.NewRunID()
	log.Info("starting sync", "input", cfg.Input, "dry_run", cfg.DryRun, "run_id", runID)

	writer := record.NewWriter(store, record.WriterConfig{
		Ceiling:   cfg.Ceiling,
		BatchSize: cfg.AppendBatch,
	})
	p := pipeline.New(createEnricher(httpClient), writer, pipeline.Config{
		Delay:     cfg.Delay,
		Extract:   archive.ExtractOptions{FollowThread: cfg.FollowThread},
		OnOutcome: outcomePrinter(cmd.OutOrStdout()),
		RunID:     runID,
	}, log, tp.Tracer())

	outcomes := p.Run(ctx, arc)
	summary := pipeline.Summarize(outcomes)
	printSummary(cmd.OutOrStdout(), summary)

	if ctx.Err() != nil {
		return fmt.Errorf("sync interrupted: %w", ctx.Err())
	}
	if !summary.OK() {
		return fmt.Errorf("%d of %d pairs were not stored completely", summary.Total-summary.Succeeded, summary.Total)
	}
	return nil
}

func outcomePrinter(w io.Writer) func(pipeline.Outcome) {
	return func(o pipeline.Outcome) {
		switch {
		case o.Succeeded():
			fmt.Fprintf(w, "✅ %s\n", o.Title)
		case o.Partial():
			fmt.Fprintf(w, "⚠ #%d %s: stored incompletely: %v\n", o.Index, o.Title, o.Err)
		default:
			fmt.Fprintf(w, "⚠ #%d skipped: %v\n", o.Index, o.Err)
		}
	}
}

func printSummary(w io.Writer, s pipeline.Summary) {
	fmt.Fprintf(w, "\n%d pairs: %d stored, %d incomplete, %d failed (%d with fallback metadata)\n",
		s.Total, s.Succeeded, s.Partial, s.Failed, s.FallbackMetadata)
}
