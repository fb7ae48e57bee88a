package main

import (
	"fmt"
	"os"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/config"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/logging"

	"github.com/spf13/cobra"
)

var log = logging.MustGetLogger("rfmctl")

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "rfmctl",
		Short:        "Segmena RFM segmentation tools",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SEGMENA_CONFIG"), "path to the YAML config file")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(resegmentCmd())

	return rootCmd
}

// loadConfig reads the configuration and initialises logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logging.InitLogger(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	return cfg, nil
}
