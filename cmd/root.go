package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/itsmostafa/scriptbridge/internal/engine"
	"github.com/itsmostafa/scriptbridge/internal/version"
	"github.com/spf13/cobra"
)

var language string
var strict bool
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "scriptbridge",
	Short: "Evaluate scripts against persistent sessions with host bindings",
	Long: `scriptbridge runs JavaScript or Tengo source in a persistent session.
Variables declared by a script are kept between evaluations and copied back
into named bindings, which can be loaded from and dumped to YAML.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(logLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("scriptbridge %s\n", version.String()))

	// Language flag with env var fallback
	defaultLang := "js"
	if envLang := os.Getenv("SCRIPTBRIDGE_LANG"); envLang != "" {
		defaultLang = envLang
	}
	rootCmd.PersistentFlags().StringVar(&language, "lang", defaultLang,
		fmt.Sprintf("Script language (%s)", strings.Join(engine.Languages(), ", ")))
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Compile JavaScript in strict mode")

	defaultLevel := "warn"
	if envLevel := os.Getenv("SCRIPTBRIDGE_LOG_LEVEL"); envLevel != "" {
		defaultLevel = envLevel
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// newEngine creates an engine from the persistent flags.
func newEngine() (*engine.Engine, error) {
	cfg := engine.DefaultConfig()
	cfg.Language = language
	cfg.Strict = strict
	cfg.Logger = slog.Default()
	return engine.New(cfg)
}
