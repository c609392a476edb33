package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/seed"
)

func NewSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default categories and topics",
		Long: `seed creates the DEFAULT categories, their topics and the links
between them. Entries that already exist are left untouched, so the
command can be run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, _, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var seeds []domain.CategorySeed
			if file != "" {
				seeds, err = seed.Load(file)
			} else {
				seeds, err = seed.Defaults()
			}
			if err != nil {
				return err
			}

			svc, closeStore, err := buildService(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := svc.SeedCategories(cmd.Context(), seeds)
			if err != nil {
				return err
			}
			log.Info("seed complete",
				zap.Int("categories", res.Categories),
				zap.Int("topics", res.Topics),
				zap.Int("links", res.Links),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML file with the categories to seed (defaults to the built-in set)")
	return cmd
}
