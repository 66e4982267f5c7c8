package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bindery/internal/output"
	"github.com/jackzampolin/bindery/version"
)

var (
	appCfgFile   string
	homeDir      string
	outputFormat string
	logLevel     string
	logFormat    string
	envFile      string
)

var rootCmd = &cobra.Command{
	Use:   "bindery",
	Short: "AI book generation pipeline for Amazon KDP",
	Long: `Bindery turns a book configuration into a KDP-ready package:
a Markdown manuscript, a cover image, interior and cover PDFs, and a
publishing manifest.

The pipeline includes:
  - Outline and chapter generation with a selectable text backend
  - Cover art generation with a selectable image backend
  - PDF assembly and a non-blocking quality gate
  - Resumable runs with per-stage checkpoints and cost tracking`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// API keys commonly live in .env; a missing file is fine.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		printer = output.NewPrinter(cmd.OutOrStdout(), format)

		logger, err := newLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&appCfgFile, "app-config", "", "application config file (default: ./config.yaml or ~/.bindery/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "bindery home directory (default: ~/.bindery)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml, or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "text", "log format: text or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", ".env", "dotenv file loaded at startup",
	)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(costCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(ollamaCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// parseable with -o json.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
}
