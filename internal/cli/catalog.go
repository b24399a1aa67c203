package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chartforge/pkg/catalog"
)

// catalogCommand creates the catalog inspection command.
func (c *CLI) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List chart families and themes",
	}
	cmd.AddCommand(c.catalogFamiliesCommand())
	cmd.AddCommand(c.catalogThemesCommand())
	return cmd
}

func (c *CLI) catalogFamiliesCommand() *cobra.Command {
	var shape string
	cmd := &cobra.Command{
		Use:   "families",
		Short: "List chart families",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}
			var only catalog.Shape
			if shape != "" {
				s, ok := catalog.ParseShape(shape)
				if !ok {
					return fmt.Errorf("unknown shape %q", shape)
				}
				only = s
			}
			fmt.Println(familiesTable(cat, only))
			return nil
		},
	}
	cmd.Flags().StringVar(&shape, "shape", "", "only families with this dataset shape")
	return cmd
}

func (c *CLI) catalogThemesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List chart themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}
			fmt.Println(themesTable(cat))
			return nil
		},
	}
}

// familiesTable lists families, optionally only those of one shape.
func familiesTable(cat *catalog.Catalog, shape catalog.Shape) string {
	t := newTable("Family", "Shape", "Series", "Rows", "Theme", "Description")
	for _, f := range cat.Families() {
		if shape != "" && f.Shape != shape {
			continue
		}
		t.Row(f.Name, string(f.Shape), f.SeriesType, strconv.Itoa(f.DefaultRows), f.Theme, truncate(f.Description, 48))
	}
	return t.Render()
}

// themesTable shows each theme with a swatch of its palette.
func themesTable(cat *catalog.Catalog) string {
	t := newTable("Theme", "Background", "Palette")
	for _, th := range cat.Themes() {
		t.Row(th.Name, th.Background, swatch(th.Palette))
	}
	return t.Render()
}

func swatch(palette []string) string {
	var b strings.Builder
	for _, color := range palette {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("■"))
	}
	return b.String()
}
