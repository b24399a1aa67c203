package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chartforge/pkg/raster"
)

// convertOpts holds flags for the convert command.
type convertOpts struct {
	output   string
	width    int
	height   int
	parallel int
	timeout  time.Duration
	attempts int
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert <dir|file>",
		Short: "Rasterize chart documents to PNG with a headless browser",
		Long: `Convert loads each HTML document in headless Chromium and writes a PNG of
exactly the requested size. Directories are walked recursively and mirrored
under the output directory.`,
		Example: `  chartforge convert charts
  chartforge convert charts/chart_42.html --width 1920 --height 1080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default: images root)")
	cmd.Flags().IntVar(&opts.width, "width", raster.DefaultWidth, "image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", raster.DefaultHeight, "image height in pixels")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", raster.DefaultParallelism, "concurrent browser sessions")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-document time budget (default: raster_timeout)")
	cmd.Flags().IntVar(&opts.attempts, "attempts", raster.DefaultAttempts, "attempts per document")

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, input string, opts convertOpts) error {
	if opts.output == "" {
		opts.output = c.settings().ImagesRoot
	}
	conv := c.newConverter(raster.Options{
		Width:       opts.width,
		Height:      opts.height,
		Timeout:     opts.timeout,
		Attempts:    opts.attempts,
		Parallelism: opts.parallel,
	})

	tasks, err := conv.Plan(input, opts.output)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		printWarning("No HTML documents found in %s", input)
		return nil
	}

	prog := newProgress(c.Logger)
	report := conv.Run(ctx, tasks)
	prog.done("Conversion finished")

	printReport(report)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func printReport(r *raster.Report) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		printSuccess("Converted %d documents", r.Written)
	case r.Written == 0:
		printError("No documents converted (%d failed, %d skipped)", r.Failed, r.Skipped)
	default:
		printWarning("Converted %d of %d documents (%d failed, %d skipped)", r.Written, len(r.Tasks), r.Failed, r.Skipped)
	}
	for _, t := range r.Tasks {
		if t.State == raster.StateWritten {
			printFile(t.Output)
		}
	}
	for _, t := range r.Failures() {
		printDetail("%s: %s", t.Input, truncate(t.Error, 80))
	}
}
