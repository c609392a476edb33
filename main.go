package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/config"
	"github.com/euskoog/openai-assistants-link/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "assistants-link",
	Short: "Links local assistants, datasources and conversations to the hosted Assistants API",
	Long: `assistants-link serves a REST API over locally stored assistants,
categories, topics and datasources, relays chat turns to the hosted
Assistants API and classifies every reply into a category and topic.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (yaml, json or toml)")

	rootCmd.AddCommand(
		NewServeCommand(),
		NewSeedCommand(),
		NewChatCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, zap.AtomicLevel, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	log, level, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, nil, zap.AtomicLevel{}, err
	}
	return cfg, log, level, nil
}
