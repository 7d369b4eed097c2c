package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ideaforge/internal/config"
	"ideaforge/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Resolved process configuration
	fileConfig *config.FileConfig
	logger     *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ideaforge",
	Short: "ideaforge - multi-agent idea refinement pipeline",
	Long: `ideaforge generates, critiques, and refines ideas for a topic using a
pipeline of batched LLM agents: generator, critic, advocate, skeptic,
and refiner. Each batch of ideas costs exactly one provider call per
agent, so a full run is a handful of calls regardless of idea count.

Configure the provider with ideaforge.yaml, ~/.ideaforge.yaml, or the
IDEAFORGE_* environment variables (a .env file is loaded if present).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; ignore a missing file.
		_ = godotenv.Load()

		if verbose {
			os.Setenv("IDEAFORGE_LOG_LEVEL", "debug")
		}
		var err error
		logger, err = logging.NewDefault()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Init(logger)

		paths := config.DefaultConfigPaths()
		if configPath != "" {
			paths = []string{configPath}
		}
		fileConfig, err = config.Load(paths...)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ideaforge.yaml, ~/.ideaforge.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
