package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/trace"
)

// labelCommand manages the host label file.
func (c *CLI) labelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Manage host labels",
		Long: `Manage host labels.

Host labels name addresses ahead of the trace's own symbols, e.g. after
identifying a function by hand. They live in a TOML file:

  [labels]
  "0x401000" = "main"

The file is chosen with --labels or the 'labels' config key.`,
	}

	cmd.AddCommand(c.labelSetCommand())
	cmd.AddCommand(c.labelListCommand())
	return cmd
}

func (c *CLI) labelSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set [addr] [name]",
		Short: "Label an address; an empty name removes the label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.labelFile()
			if err != nil {
				return err
			}
			addr, err := trace.ParseAddress(args[0])
			if err != nil {
				return err
			}

			labels, err := trace.LoadLabels(path)
			if errors.Is(err, errors.ErrCodeFileNotFound) {
				labels, err = trace.NewLabels(), nil
			}
			if err != nil {
				return err
			}

			labels.Set(addr, args[1])
			if err := labels.Save(path); err != nil {
				return fmt.Errorf("save labels: %w", err)
			}
			if name, ok := labels.NameFor(addr); ok {
				printSuccess("%s = %s", trace.FormatAddress(addr), name)
			} else {
				printSuccess("Removed label of %s", trace.FormatAddress(addr))
			}
			return nil
		},
	}
}

func (c *CLI) labelListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all host labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.labelFile()
			if err != nil {
				return err
			}
			labels, err := trace.LoadLabels(path)
			if errors.Is(err, errors.ErrCodeFileNotFound) {
				printInfo("No labels in %s", path)
				return nil
			}
			if err != nil {
				return err
			}

			addrStyle := lipgloss.NewStyle().Foreground(colorCyan).Width(20)
			for _, addr := range labels.Addrs() {
				name, _ := labels.NameFor(addr)
				fmt.Fprintln(cmd.OutOrStdout(), addrStyle.Render(trace.FormatAddress(addr))+StyleValue.Render(name))
			}
			return nil
		},
	}
}

func (c *CLI) labelFile() (string, error) {
	if c.Config.Labels == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "no label file: pass --labels or set 'labels' in the config")
	}
	return c.Config.Labels, nil
}
