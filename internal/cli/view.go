package cli

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bbflame/pkg/viewport"
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		root int
		seed uint64
		step int64
	)

	cmd := &cobra.Command{
		Use:   "view [trace]",
		Short: "Browse a trace as a flame graph in the terminal",
		Long: `Browse a trace as a flame graph in the terminal.

Every terminal column is one column of the flame graph and every line one
call depth. Pan with ←/→ (by --step columns) or a page at a time with
shift, jump back with 0 and pick another root with r.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: traceArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, labels, err := c.loadTrace(args[0])
			if err != nil {
				return err
			}

			opts := []viewport.Option{
				viewport.WithHostNames(labels),
				viewport.WithStep(c.Config.ScrollStep),
			}
			if cmd.Flags().Changed("step") {
				opts = append(opts, viewport.WithStep(step))
			}
			if !cmd.Flags().Changed("seed") {
				seed = c.Config.Seed
			}
			if seed != 0 {
				opts = append(opts, viewport.WithSeed(seed))
			}

			ctrl := viewport.New(src, opts...)
			if _, err := ctrl.SelectRoot(root); err != nil {
				return err
			}

			title := fmt.Sprintf("%s · %d roots", filepath.Base(args[0]), len(ctrl.Roots()))
			p := tea.NewProgram(NewFlameModel(ctrl, title), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("viewer: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&root, "root", 0, "root to show first")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "color seed (default from config, 0 for random)")
	cmd.Flags().Int64Var(&step, "step", viewport.DefaultStep, "columns to pan per key press")
	return cmd
}
