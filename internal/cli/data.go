package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/fsutil"
	"github.com/matzehuels/chartforge/pkg/render/nodelink"
)

// dataOpts holds flags for the data command.
type dataOpts struct {
	rows     int
	seed     int64
	preview  string
	detailed bool
}

// dataCommand creates the data command, which prints a synthesized dataset.
func (c *CLI) dataCommand() *cobra.Command {
	var opts dataOpts

	cmd := &cobra.Command{
		Use:   "data <family>",
		Short: "Print a synthesized dataset for a chart family",
		Long: `Data synthesizes the dataset a chart of the given family would be rendered
from and prints it as JSON. Tree and network families can also be drawn as a
Graphviz structure preview.`,
		Example: `  chartforge data Sankey --rows 12 --seed 7
  chartforge data Tree --preview tree.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runData(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.rows, "rows", "n", 0, "dataset rows (default: family default)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "dataset seed")
	cmd.Flags().StringVar(&opts.preview, "preview", "", "write an SVG structure preview (tree and network families)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label preview nodes and edges with values")

	return cmd
}

func (c *CLI) runData(ctx context.Context, name string, opts dataOpts) error {
	cat, err := c.loadCatalog()
	if err != nil {
		return err
	}
	family, ok := cat.Family(name)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown chart family %q", name)
	}
	if err := errors.ValidateRows(opts.rows, dataset.MaxRows); err != nil {
		return err
	}

	spec := cat.Spec(family)
	rows := opts.rows
	if rows == 0 {
		rows = spec.DefaultRows
	}
	ds, err := dataset.NewSynthesizer(opts.seed).Synthesize(spec, rows)
	if err != nil {
		return err
	}

	if opts.preview == "" {
		data, err := ds.MarshalIndent()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if !nodelink.Supports(spec.Shape) {
		return errors.New(errors.ErrCodeUnsupported, "%s charts use %s data, which has no structure preview", family.Name, spec.Shape)
	}
	theme, _ := cat.Theme(spec.DefaultTheme)
	svg, err := nodelink.Preview(ctx, ds, nodelink.Options{Detailed: opts.detailed, Theme: theme})
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(opts.preview, svg, 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	printSuccess("Wrote %s structure preview", StyleHighlight.Render(family.Name))
	printFile(opts.preview)
	return nil
}
