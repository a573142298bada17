package cmd

import (
	"github.com/spf13/cobra"

	"github.com/psantana5/procwatch/internal/config"
)

var (
	cfgFile  string
	logLevel string
	logFile  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "procwatch",
	Short: "Terminal process supervisor",
	Long: `procwatch supervises a fleet of local and containerized processes declared
in a YAML document: it spawns them, captures their output, samples CPU and
memory, restarts them per policy, and renders a live terminal dashboard.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultFile, "path to the configuration document")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file in addition to the in-memory buffer")
}
