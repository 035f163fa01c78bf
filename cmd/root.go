// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/internal/config"
	"github.com/xkilldash9x/neurodesk/internal/observability"
)

// contextKey scopes the values this package stores on command contexts.
type contextKey string

// configKey carries the validated configuration from PersistentPreRunE to
// the subcommand RunE functions.
const configKey contextKey = "config"

// NewRootCommand builds a fresh command tree. Every call returns an isolated
// instance so tests and embedded shells never share flag or viper state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "neurodesk",
		Short:   "NeuroDesk publishes desktop context to an AI agent backend and executes its desktop actions.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Local overrides such as NEURODESK_RELAY_TOKEN may live in a
			// .env file in the working directory.
			_ = godotenv.Load()

			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "neurodesk"})
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				// Initialize a fallback logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "neurodesk"})
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := applyFlagOverrides(cmd, cfg); err != nil {
				return err
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Info("Starting NeuroDesk", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log verbosity: debug, info, warn or error. (Overrides config/env)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newActionsCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree under the given signal-aware context. The
// caller owns the exit code; context.Canceled marks an operator-initiated
// shutdown and is not logged as a failure.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig layers the config file and NEURODESK_* environment
// variables over the defaults already present in v.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		expanded, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("NEURODESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}
	return nil
}

// applyFlagOverrides lets explicit command line flags beat file and
// environment values. Flags the executed command does not define report as
// unchanged and are skipped.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		level, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.SetLoggerLevel(level)
	}
	if flags.Changed("platform-mode") {
		mode, err := flags.GetString("platform-mode")
		if err != nil {
			return err
		}
		cfg.SetPlatformMode(mode)
	}
	if flags.Changed("poll-interval") {
		interval, err := flags.GetDuration("poll-interval")
		if err != nil {
			return err
		}
		cfg.SetEnginePollInterval(interval)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flag override: %w", err)
	}
	return nil
}

// configFromContext recovers the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration missing from command context")
	}
	return cfg, nil
}
