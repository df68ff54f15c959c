package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cwbudde/clkit/internal/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	backend    string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clkit",
	Short: "OpenCL platform and device selection toolkit",
	Long: `clkit enumerates OpenCL platforms and devices, narrows them down with
filter chains and keeps reusable selections as named profiles. The same
selection logic is available over HTTP with "clkit serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader(configPath)
		for key, flag := range map[string]string{
			"log.level":  "log-level",
			"log.format": "log-format",
			"backend":    "backend",
		} {
			if err := loader.BindFlag(key, cmd.Flags(), flag); err != nil {
				return err
			}
		}

		loaded, err := loader.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logger = newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		slog.SetDefault(logger)
		if f := loader.File(); f != "" {
			slog.Debug("Loaded config", "file", f)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: clkit.toml in the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", config.BackendAuto, "Native backend (auto, opencl, fake)")
}

// newLogger builds the process logger. Text output goes through the
// charmbracelet handler, JSON through slog's own.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var slevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slevel = slog.LevelDebug
	case "warn":
		slevel = slog.LevelWarn
	case "error":
		slevel = slog.LevelError
	default:
		slevel = slog.LevelInfo
	}

	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slevel}))
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           log.Level(slevel),
		ReportTimestamp: true,
	})
	return slog.New(handler)
}

// currentConfig returns the loaded config, or the defaults when a command
// runs without the root pre-run (tests).
func currentConfig() *config.Config {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	return cfg
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
