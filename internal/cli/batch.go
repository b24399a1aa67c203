package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chartforge/internal/metrics"
	"github.com/matzehuels/chartforge/pkg/batch"
	"github.com/matzehuels/chartforge/pkg/instructions"
	"github.com/matzehuels/chartforge/pkg/observability"
)

// batchOpts holds flags for the batch command.
type batchOpts struct {
	families   []string
	themes     []string
	variations int
	output     string
	parallel   int
	rows       int
	sidecar    bool
	metrics    bool
}

// batchCommand creates the batch command.
func (c *CLI) batchCommand() *cobra.Command {
	var opts batchOpts

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate charts for every family, theme and variation",
		Long: `Batch generates one document per (family, theme, variation) combination.

Documents are written to <output>/<Family>/<family>_<theme>_<NN>.html and a
batch_summary.json records every job. A failing job never stops the others.`,
		Example: `  chartforge batch --families Line,Pie --themes light,dark --variations 2
  chartforge batch --parallel 8 --output gallery`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.families, "families", nil, "families to generate (default: all)")
	cmd.Flags().StringSliceVar(&opts.themes, "themes", nil, "themes to apply (default: all)")
	cmd.Flags().IntVar(&opts.variations, "variations", batch.DefaultVariations, "variations per family and theme")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default: documents root)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 0, "concurrent jobs (default: batch_parallelism)")
	cmd.Flags().IntVarP(&opts.rows, "rows", "n", 0, "dataset rows (default: family default)")
	cmd.Flags().BoolVar(&opts.sidecar, "sidecar", false, "write <name>.json next to each document")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print metric counters when done")

	return cmd
}

func (c *CLI) runBatch(ctx context.Context, opts batchOpts) error {
	cfg := c.settings()
	if opts.output == "" {
		opts.output = cfg.DocumentsRoot
	}
	if opts.parallel <= 0 {
		opts.parallel = cfg.BatchParallelism
	}

	var m *metrics.Metrics
	if opts.metrics {
		m = metrics.New()
		m.Install()
		defer observability.Reset()
	}

	runner, closeRunner, err := c.newRunner(ctx, opts.sidecar)
	if err != nil {
		return err
	}
	defer closeRunner()

	coord := batch.NewCoordinator(runner, runner.Catalog, c.Logger)
	summary, err := coord.Run(ctx, batch.Options{
		Families:    opts.families,
		Themes:      opts.themes,
		Variations:  opts.variations,
		OutputDir:   opts.output,
		Parallelism: opts.parallel,
		Rows:        opts.rows,
	})
	if err != nil {
		return err
	}

	summaryPath := filepath.Join(opts.output, batch.SummaryFile)
	if err := summary.Write(summaryPath); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	printNewline()
	fmt.Println(summaryTable(summary))
	printBatchOutcome(summary)
	printFile(summaryPath)

	if m != nil {
		printNewline()
		fmt.Println(StyleTitle.Render("Metrics"))
		if err := m.WriteCounters(os.Stdout); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func printBatchOutcome(s *batch.Summary) {
	switch {
	case s.Failed == 0 && s.Skipped == 0:
		printSuccess("Generated %d charts in %s", s.Succeeded, s.Duration.Round(time.Millisecond))
	case s.Succeeded == 0:
		printError("No charts generated (%d failed, %d skipped)", s.Failed, s.Skipped)
	default:
		printWarning("Generated %d of %d charts (%d failed, %d skipped)", s.Succeeded, s.Total, s.Failed, s.Skipped)
	}
	if s.Fallbacks > 0 {
		printDetail("%d charts used built-in templates", s.Fallbacks)
	}
	for _, f := range s.Failures() {
		printDetail("%s/%s #%d: %s", f.Family, f.Theme, f.Variation, truncate(f.Reason, 80))
	}
}

// familyCounts aggregates one family's jobs.
type familyCounts struct {
	succeeded, failed, skipped, fallbacks int
}

// summaryTable renders per-family outcome counts in summary order.
func summaryTable(s *batch.Summary) string {
	var order []string
	counts := map[string]*familyCounts{}
	for _, j := range s.Jobs {
		fc, ok := counts[j.Family]
		if !ok {
			fc = &familyCounts{}
			counts[j.Family] = fc
			order = append(order, j.Family)
		}
		switch j.Status {
		case batch.StatusSucceeded:
			fc.succeeded++
			if j.Source == instructions.SourceFallback {
				fc.fallbacks++
			}
		case batch.StatusFailed:
			fc.failed++
		case batch.StatusSkipped:
			fc.skipped++
		}
	}

	t := newTable("Family", "OK", "Failed", "Skipped", "Fallback")
	for _, f := range order {
		fc := counts[f]
		t.Row(f, strconv.Itoa(fc.succeeded), strconv.Itoa(fc.failed), strconv.Itoa(fc.skipped), strconv.Itoa(fc.fallbacks))
	}
	return t.Render()
}
