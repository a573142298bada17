package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/psantana5/procwatch/internal/api"
	"github.com/psantana5/procwatch/internal/app"
	"github.com/psantana5/procwatch/internal/config"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/metrics"
	"github.com/psantana5/procwatch/internal/ui"
)

var headless bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Supervise the configured processes",
	Long: `Start every service and stub declared in the configuration document,
watch the document for changes, and drive the terminal dashboard until
q or Ctrl-C. With --headless no terminal UI is drawn; the supervisor
runs until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&headless, "headless", false, "run without the terminal dashboard")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ring := logging.NewRing(cfg.LogBufferSize)
	level := logging.ParseLevel(logLevel)
	var log *logging.Logger
	if logFile != "" {
		log, err = logging.NewFileLogger(level, ring, logFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	} else {
		log = logging.NewLogger(level, ring)
	}
	defer log.Close()

	set := metrics.New()

	var opts app.Options
	if !headless {
		dash, err := ui.New()
		if err != nil {
			return fmt.Errorf("initializing terminal: %w", err)
		}
		defer dash.Close()
		opts.Dashboard = dash
	}
	if cfg.HTTPAddr != "" {
		opts.Status = api.NewServer(cfg.HTTPAddr, log, set.Handler())
	}

	a, err := app.New(cfgFile, log, ring, opts)
	if err != nil {
		return err
	}
	a.Proc().SetMetrics(set)

	if dash, ok := opts.Dashboard.(*ui.Dashboard); ok {
		dash.StartInputPump(a.Events())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}
