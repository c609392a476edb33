package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// SeedCategories creates the DEFAULT categories, their topics and the links
// between them. Rows that already exist are reused, so seeding twice
// creates nothing the second time.
func (s *Service) SeedCategories(ctx context.Context, seeds []domain.CategorySeed) (*domain.SeedResult, error) {
	res := &domain.SeedResult{}
	for _, seed := range seeds {
		c, err := s.store.GetCategoryByName(ctx, seed.Name, domain.CategoryTypeDefault)
		if err != nil {
			return res, fmt.Errorf("failed to find category %q: %w", seed.Name, err)
		}
		if c == nil {
			c = &domain.Category{Name: seed.Name, Description: seed.Description, Type: domain.CategoryTypeDefault}
			if err := s.store.CreateCategory(ctx, c); err != nil {
				return res, fmt.Errorf("failed to create category %q: %w", seed.Name, err)
			}
			res.Categories++
		}

		for _, name := range seed.Topics {
			t, err := s.store.GetTopicByName(ctx, name)
			if err != nil {
				return res, fmt.Errorf("failed to find topic %q: %w", name, err)
			}
			if t == nil {
				t = &domain.Topic{Name: name}
				if err := s.store.CreateTopic(ctx, t); err != nil {
					return res, fmt.Errorf("failed to create topic %q: %w", name, err)
				}
				res.Topics++
			}
			if !t.Active() {
				s.logger.Warn("skipping deleted topic", zap.String("topic", name))
				continue
			}

			l, err := s.store.FindCategoryTopic(ctx, c.ID, t.ID)
			if err != nil {
				return res, fmt.Errorf("failed to find category topic: %w", err)
			}
			if l == nil {
				if err := s.store.CreateCategoryTopic(ctx, &domain.CategoryTopic{CategoryID: c.ID, TopicID: t.ID}); err != nil {
					return res, fmt.Errorf("failed to link %q to %q: %w", name, seed.Name, err)
				}
				res.Links++
			}
		}
	}

	s.logger.Info("categories seeded",
		zap.Int("categories", res.Categories), zap.Int("topics", res.Topics), zap.Int("links", res.Links))
	return res, nil
}
