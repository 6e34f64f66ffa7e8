// Command cuberank serves competition records over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ahrav/go-cuberank/internal/application"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	dataDir    string
	debug      bool

	logger *zap.Logger
	cfg    application.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "cuberank",
		Short: "Competition record aggregation and query service",
		Long: `cuberank loads a competition results export, derives every competitor's
single and average records per event, and answers profile, search,
leaderboard and comparison queries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := application.LoadEnvFiles(opts.envFile); err != nil {
				return err
			}
			cfg, err := application.LoadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.dataDir != "" {
				cfg.Data.Dir = opts.dataDir
			}
			if opts.debug {
				cfg.Log.Level = "debug"
			}
			opts.cfg = cfg

			opts.logger, err = newLogger(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file (ignored when absent)")
	root.PersistentFlags().StringVarP(&opts.dataDir, "data-dir", "d", "", "Directory holding the export files (overrides config)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newInspectCmd(opts))
	return root
}

// newLogger builds a production zap logger at the given level.
func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	return config.Build()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
