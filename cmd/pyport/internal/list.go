package internal

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/goplus/pyport/internal/modules"
	"github.com/spf13/cobra"
)

var (
	nameStyle    = lipgloss.NewStyle().Bold(true).Width(10)
	versionStyle = lipgloss.NewStyle().Width(10)
	onStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Width(5)
	offStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Width(5)
)

var listCmd = &cobra.Command{
	Use:   "list [version]",
	Short: "List optional modules and whether they would be built",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringSliceVarP(&buildFlags.modules, "modules", "m", nil, `Modules to build: names, "all" or "none"`)
	listCmd.Flags().StringSliceVar(&buildFlags.exclude, "exclude", nil, "Modules never to build")
	listCmd.Flags().StringArrayVar(&buildFlags.pins, "pin", nil, "Pin a module version, as name@version")
	listCmd.Flags().StringVar(&buildFlags.target, "target", "", "Target platform as os-arch")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := applyBuildFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.LoadPins(); err != nil {
		return err
	}
	plat, err := cfg.Platform()
	if err != nil {
		return err
	}
	policy := cfg.Policy(plat)
	if err := policy.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Modules for %s:\n", plat)
	printPlan(cmd.OutOrStdout(), policy.Plan())
	return nil
}

func printPlan(w io.Writer, plan []modules.Decision) {
	for _, d := range plan {
		status := offStyle.Render("no")
		if d.Enabled {
			status = onStyle.Render("yes")
		}
		fmt.Fprintf(w, "%s%s%s%s\n", nameStyle.Render(d.Name), versionStyle.Render(d.Version), status, d.Reason)
	}
}
