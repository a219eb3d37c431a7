// Package agent is the CLI entry point: flag wiring, config load, logger
// setup and the run-until-signalled lifecycle.
package agent

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "github.com/probe-agent/internal/agent"
	"github.com/probe-agent/pkg/config"
	"github.com/probe-agent/pkg/logger"
	"github.com/probe-agent/pkg/signal"
	"github.com/probe-agent/pkg/util"
)

const version = "0.4.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "probe-agent",
	Short:   "Lightweight metrics-collection daemon: runs configured probes and stores their samples",
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := run(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return nil
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to the YAML config file")
	initGeneralFlags(rootCmd)
	initTelemetryFlags(rootCmd)
	initLogFlags(rootCmd)
}

func run(cfg *config.Config) error {
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	util.PrintBanner("probe-agent")

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}
	if err := a.Start(); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	signal.WaitForShutdown(a.Shutdown)
	return nil
}
