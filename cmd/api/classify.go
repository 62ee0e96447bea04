package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/service"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description>",
		Short: "Print the suggested category and priority for a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			client, err := classifier.New(cfg.Classifier, logger, nil)
			if err != nil {
				return err
			}
			svc := service.NewTicketService(service.TicketDependencies{Classifier: client, Logger: logger})

			result, err := svc.Classify(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.ClassifyResponse{
				SuggestedCategory: result.Category,
				SuggestedPriority: result.Priority,
			})
		},
	}
}
