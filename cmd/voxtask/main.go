// voxtask is the task planning/execution/recovery engine of a voice-driven
// assistant, exposed here as a text REPL: each line is treated as a
// recognized utterance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"voxtask/internal/capability"
	"voxtask/internal/classify"
	"voxtask/internal/config"
	"voxtask/internal/dialogue"
	"voxtask/internal/engine"
	"voxtask/internal/events"
	"voxtask/internal/logging"
	"voxtask/internal/oracle"
	"voxtask/internal/plan"
	"voxtask/internal/workers"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "voxtask",
	Short: "voxtask - voice assistant task engine",
	Long: `voxtask turns a recognized utterance into a multi-step plan, executes it
against registered capabilities, classifies failures, and recovers through a
bounded clarification dialogue.

Run without arguments to start the interactive loop.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		return app.repl(cmd.Context(), os.Stdin, os.Stdout)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run a single query through the plan/execute/recover pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		reply := app.interact(cmd.Context(), os.Stdout, strings.Join(args, " "))
		fmt.Fprintln(os.Stdout, reply.Text)
		if reply.Awaiting {
			fmt.Fprintln(os.Stdout, "(等待补充信息，请使用交互模式继续)")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "voxtask.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(runCmd)
}

// buildApp wires the full component graph from configuration.
func buildApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, level, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	watcher, err := config.NewWatcher(configPath, level, log)
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		return nil, nil, err
	}

	reg := capability.NewRegistry(log)
	reg.MustRegister(workers.FileRegistration(cfg.Workers.FileRoot, log))
	reg.MustRegister(workers.WeatherRegistration(log))

	var po oracle.PlanOracle
	var ph oracle.Phraser
	if cfg.Oracle.APIKey != "" {
		gem, err := oracle.NewGeminiOracle(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model, reg.Names(), log)
		if err != nil {
			watcher.Stop()
			return nil, nil, err
		}
		po, ph = gem, gem
	} else {
		log.Warn("no API key configured, using the offline planner")
		canned := oracle.NewCannedOracle()
		po, ph = canned, canned
	}

	bus := events.NewBus(log)
	eng := engine.New(reg, bus, log)
	cl := classify.New(classify.DefaultConfig())
	ctrl := dialogue.New(po, ph, plan.NewParser(log), eng, cl, bus, log)
	ctrl.Configure(cfg.Dialogue.MaxRetries, cfg.Dialogue.TimeoutSeconds)

	a := &app{cfg: cfg, log: log, bus: bus, controller: ctrl}
	cleanup := func() {
		watcher.Stop()
		_ = log.Sync()
	}
	return a, cleanup, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
