package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clinical-rosetta/internal/config"
)

var (
	envFile string
	debugOn bool
	catalog string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rosetta",
		Short: "Lab test shorthand to LOINC resolution",
		Long: `Resolves free-text laboratory test names and abbreviations to LOINC codes
using curated mappings, an abbreviation dictionary, fuzzy matching and
user-confirmed mappings`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this .env file")
	rootCmd.PersistentFlags().BoolVar(&debugOn, "debug", false, "trace every resolution step")
	rootCmd.PersistentFlags().StringVar(&catalog, "catalog", "", "catalog file, CSV directory or \"postgres\"")

	rootCmd.AddCommand(createTranslateCmd())
	rootCmd.AddCommand(createSearchCmd())
	rootCmd.AddCommand(createBatchCmd())
	rootCmd.AddCommand(createConfirmCmd())
	rootCmd.AddCommand(createStatsCmd())
	rootCmd.AddCommand(createServeCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command-line overrides
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if debugOn {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if catalog != "" {
		cfg.Catalog = catalog
	}
	return cfg, nil
}
