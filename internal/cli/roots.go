package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bbflame/pkg/pipeline"
)

// rootsCommand creates the roots command listing the trees of a trace.
func (c *CLI) rootsCommand() *cobra.Command {
	var (
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:               "roots [trace]",
		Short:             "List the roots of a trace",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: traceArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _, err := c.loadTrace(args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			roots, err := runner.Roots(cmd.Context(), src)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(roots)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rootsTable(roots))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

// rootsTable renders root summaries as a bordered table.
func rootsTable(roots []pipeline.RootSummary) string {
	rows := make([][]string, len(roots))
	for i, r := range roots {
		rows[i] = []string{
			strconv.Itoa(r.Index),
			r.Label,
			r.Addr,
			humanize.Comma(r.Size),
			humanize.Comma(int64(r.Nodes)),
			strconv.Itoa(r.MaxDepth + 1),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Foreground(colorCyan).Align(lipgloss.Right)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Root", "Addr", "Size", "Nodes", "Depth").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 3:
				return numberStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}
