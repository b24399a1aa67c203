package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/pipeline"
	"github.com/matzehuels/chartforge/pkg/raster"
)

// generateOpts holds flags for the generate command.
type generateOpts struct {
	chartType string
	rows      int
	theme     string
	output    string
	title     string
	seed      int64
	png       bool
	pick      bool
	sidecar   bool
}

// generateCommand creates the generate command for one chart request.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate one chart document from a plain-language request",
		Long: `Generate selects a chart family for the description, synthesizes a dataset,
obtains rendering instructions and writes a self-contained HTML document.

Without a generative credential the built-in templates are used.`,
		Example: `  chartforge generate "monthly revenue by region"
  chartforge generate "server load" --type Gauge --theme dark --png
  chartforge generate --pick "how do sales split across channels"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.chartType, "type", "t", "", "chart family (e.g. Line, Pie, Sankey)")
	cmd.Flags().IntVarP(&opts.rows, "rows", "n", 0, "dataset rows (default: family default)")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "chart theme (default: family default)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output document path (default: <documents root>/chart_<id>.html)")
	cmd.Flags().StringVar(&opts.title, "title", "", "chart title (default: derived from the description)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "dataset seed (default: random)")
	cmd.Flags().BoolVar(&opts.png, "png", false, "also convert the document to PNG")
	cmd.Flags().BoolVar(&opts.pick, "pick", false, "choose the chart family interactively")
	cmd.Flags().BoolVar(&opts.sidecar, "sidecar", false, "write <name>.json with instructions and data")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, description string, opts generateOpts) error {
	runner, closeRunner, err := c.newRunner(ctx, opts.sidecar)
	if err != nil {
		return err
	}
	defer closeRunner()

	req := pipeline.Request{
		Description: description,
		ChartType:   opts.chartType,
		Rows:        opts.rows,
		Theme:       opts.theme,
		Output:      opts.output,
		Seed:        opts.seed,
		Title:       opts.title,
	}

	if opts.pick {
		suggested := runner.Select(req)
		family, err := pickFamily(runner.Catalog.Families(), suggested.Family)
		if err != nil {
			return fmt.Errorf("family picker: %w", err)
		}
		if family == "" {
			printInfo("No family selected")
			return nil
		}
		req.ChartType = family
	}

	spinner := newSpinnerWithContext(ctx, "Generating chart...")
	spinner.Start()
	res, err := runner.Execute(ctx, req)
	if err != nil {
		spinner.StopWithError(errors.UserMessage(err))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %s chart %s", StyleHighlight.Render(res.Spec.Family), StyleDim.Render("("+res.Theme+")")))
	printFile(res.Artifact.Path)
	if res.Artifact.Sidecar != "" {
		printFile(res.Artifact.Sidecar)
	}
	fmt.Println(statsLine(res.Stats.Rows, res.Source, res.Stats.GenerativeAttempts, res.Stats.Total()))
	if res.FallbackReason != "" {
		printDetail("fallback: %s", res.FallbackReason)
	}

	if !opts.png {
		printNewline()
		printNextStep("Convert to PNG", fmt.Sprintf("%s convert %s", appName, res.Artifact.Path))
		return nil
	}

	return c.convertOne(ctx, res.Artifact.Path)
}

// convertOne rasterizes a single document into the images root.
func (c *CLI) convertOne(ctx context.Context, doc string) error {
	out := filepath.Join(c.settings().ImagesRoot, strings.TrimSuffix(filepath.Base(doc), filepath.Ext(doc))+".png")
	conv := c.newConverter(raster.Options{})

	spinner := newSpinnerWithContext(ctx, "Converting to PNG...")
	spinner.Start()
	task := conv.ConvertTask(ctx, raster.Task{Input: doc, Output: out})
	if task.State != raster.StateWritten {
		spinner.StopWithError("PNG conversion failed")
		if task.Err != nil {
			return task.Err
		}
		return ctx.Err()
	}
	spinner.StopWithSuccess("Converted to PNG " + StyleDim.Render(fmt.Sprintf("(%dx%d)", task.Width, task.Height)))
	printFile(task.Output)
	return nil
}
