package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/procwatch/internal/config"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration document",
	Long: `Parse the configuration document strictly (unknown keys are errors),
run semantic validation, and print the declared services and stubs.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadStrict(cfgFile)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", cfgFile, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "Error:", e)
		}
		return fmt.Errorf("%s: %d validation error(s)", cfgFile, len(errs))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Kind", "Target", "Restart", "Cooloff", "Max")

	for _, svc := range cfg.Services {
		target := svc.Command
		if svc.Image != "" {
			target = "image " + svc.Image
		}
		restart := "no"
		cooloff := "-"
		max := "-"
		if svc.Restart.Enabled {
			restart = "yes"
			cooloff = svc.Restart.Cooloff.String()
			max = strconv.Itoa(svc.Restart.MaxRestarts)
		}
		table.Append([]string{svc.Name, "service", target, restart, cooloff, max})
	}
	for _, stub := range cfg.Stubs {
		target := stub.Command
		if stub.Image != "" {
			target = "image " + stub.Image
		}
		table.Append([]string{stub.Name, "stub", target, "no", "-", "-"})
	}
	for _, agent := range cfg.Agents {
		table.Append([]string{agent.Name, "agent", "scenario " + agent.Scenario, "-", "-", "-"})
	}

	table.Render()
	fmt.Printf("\n%s: OK (%d services, %d stubs, %d agents)\n",
		cfgFile, len(cfg.Services), len(cfg.Stubs), len(cfg.Agents))
	return nil
}
