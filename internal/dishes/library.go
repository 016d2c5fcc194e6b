package dishes

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ai-menu-builder/internal/llm"
)

// Library combines dish persistence with embedding-based lookup.
type Library struct {
	repo     *Repository
	embedGen llm.EmbeddingGenerator
	vectors  *llm.VectorRepository
	logger   *zap.Logger
}

func NewLibrary(repo *Repository, embedGen llm.EmbeddingGenerator, vectors *llm.VectorRepository, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{repo: repo, embedGen: embedGen, vectors: vectors, logger: logger}
}

// Add stores the dish and its embedding. A dish whose embedding text is
// unchanged keeps the stored vector; only new or changed dishes cost an
// embedding call.
func (l *Library) Add(ctx context.Context, d *Dish) error {
	if err := l.repo.Save(ctx, d); err != nil {
		return err
	}
	if l.embedGen == nil || l.vectors == nil {
		return nil
	}

	text := d.EmbeddingText()
	hash := llm.TextHash(text)
	existing, err := l.vectors.Get(ctx, d.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.TextHash == hash {
		l.logger.Debug("embedding unchanged, skipping", zap.String("dish_id", d.ID))
		return nil
	}

	embedding, err := l.embedGen.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding for dish %s: %w", d.ID, err)
	}
	if err := l.vectors.Save(ctx, d.ID, embedding, hash); err != nil {
		return err
	}
	l.logger.Info("dish embedded", zap.String("dish_id", d.ID), zap.String("title", d.Title))
	return nil
}

// FindSimilar embeds the query and returns the closest dishes, best
// first.
func (l *Library) FindSimilar(ctx context.Context, query string, limit int) ([]Dish, error) {
	if l.embedGen == nil || l.vectors == nil {
		return nil, fmt.Errorf("dish similarity search is not configured")
	}
	if limit <= 0 {
		limit = 5
	}
	embedding, err := l.embedGen.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	ids, err := l.vectors.FindSimilar(ctx, embedding, limit)
	if err != nil {
		return nil, err
	}
	return l.repo.GetByIDs(ctx, ids)
}
