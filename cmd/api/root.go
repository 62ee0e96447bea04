package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/observability"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ticketd",
		Short:         "Support ticket tracker with LLM-assisted triage.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global config flag, available for all commands.
	root.PersistentFlags().String("config", "", "optional config file (yaml, json or toml); env vars override it")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newClassifyCommand())
	return root
}

// bootstrap loads configuration and builds the logger shared by every command.
func bootstrap(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger, nil
}
