// Package cli implements cleanctl, the command-line front end of the cleaner.
// Commands load a dataset from a file or database, run it through the
// pipeline and print the result as text, JSON or YAML.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/core"
	"github.com/JonMunkholm/datacleaner/internal/logging"
)

// app carries state shared by all commands after the root pre-run.
type app struct {
	version string

	configFile string
	envFile    string
	logLevel   string
	formatFlag string

	cfg    *config.Config
	format OutputFormat
	stderr io.Writer
}

// NewRootCommand builds the cleanctl command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version, stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "cleanctl",
		Short: "Profile and clean tabular datasets",
		Long: `cleanctl profiles a dataset, asks an advisor for quality issues and a plan,
applies the deterministic cleaning steps and reports what changed.

Configuration comes from the environment (.env is loaded if present) and an
optional .cleanctl.yaml with cleaning options and alias overrides.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetVersionTemplate("cleanctl version {{.Version}}\n")
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "pipeline config file (default: ./.cleanctl.yaml if present)")
	pf.StringVar(&a.envFile, "env-file", ".env", "environment file to load")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	pf.StringVarP(&a.formatFlag, "format", "o", "text", "output format: text, json, yaml")

	root.AddCommand(
		newCleanCommand(a),
		newProfileCommand(a),
		newVersionCommand(a),
	)
	return root
}

// setup loads configuration and logging before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	format, err := ParseOutputFormat(a.formatFlag)
	if err != nil {
		return err
	}
	a.format = format

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	// Results go to stdout; logs stay on stderr.
	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cleanctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cleanctl version %s\n", a.version)
			return err
		},
	}
}

// Execute runs the command tree and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCommand(version)
	if err := root.ExecuteContext(ctx); err != nil {
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintf(root.ErrOrStderr(), "Error: %s\n", msg)
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}
