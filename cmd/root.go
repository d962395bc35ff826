// cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/internal/config"
	"github.com/xkilldash9x/pathfinder/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

var cfgFile string

// NewRootCommand builds the command tree. Each call returns a fresh tree so
// flags never leak between executions.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pathfinder",
		Short:   "Pathfinder drives a live browser toward a goal, or guides a human through it.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pathfinder"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pathfinder"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting pathfinder", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newOverlayCmd())
	rootCmd.AddCommand(newGuideCmd())
	rootCmd.AddCommand(newOracleCmd())
	rootCmd.AddCommand(newHistoryCmd())
	return rootCmd
}

// Execute runs the command tree under ctx.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			if logger := observability.GetLogger(); logger != nil {
				logger.Error("Command execution failed", zap.Error(err))
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		observability.Sync()
		return err
	}
	observability.Sync()
	return nil
}

// initializeConfig loads .env files, then the config file, then binds the
// environment. Flags bound by subcommands take precedence over all of them.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PATHFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return bindFlags(cmd, v)
}

// flagBindings maps command flags onto config keys.
var flagBindings = map[string]string{
	"mode":     "executor.mode",
	"url":      "browser.start_url",
	"debugger": "browser.debugger_url",
	"planner":  "planner.endpoint",
	"guidance": "guidance.url",
	"provider": "oracle.provider",
	"model":    "oracle.model",
}

// bindFlags binds the flags the running command defines. --listen belongs
// to whichever server the command starts.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range flagBindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}
	if f := cmd.Flags().Lookup("listen"); f != nil {
		if key := listenKey(cmd); key != "" {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --listen: %w", err)
			}
		}
	}
	return nil
}

func listenKey(cmd *cobra.Command) string {
	switch cmd.Name() {
	case "overlay":
		return "guidance.listen_addr"
	case "oracle":
		return "oracle.listen_addr"
	}
	return ""
}

// getConfigFromContext returns the configuration stored by the root
// command's pre-run hook.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in context")
	}
	return cfg, nil
}
