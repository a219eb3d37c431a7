package agent

import (
	"github.com/spf13/cobra"
)

// Flag names follow the config tree so viper can overlay them directly.

func initGeneralFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("general.shell", "/bin/sh", "shell interpreter for shell items")
	f.Int("bus.capacity", 100, "result bus capacity per subscriber")
}

func initTelemetryFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.Bool("telemetry.enable", false, "serve agent self-metrics over HTTP")
	f.String("telemetry.addr", "127.0.0.1:9090", "telemetry listen address (ip:port)")
}

func initLogFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.String("log.level", "info", "log level (debug|info|warn|error)")
	f.String("log.path", "./logs", "directory for rotated JSON log files")
	f.Int("log.max_age", 7, "days to keep rotated log files")
}
