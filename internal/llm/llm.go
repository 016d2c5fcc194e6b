package llm

import (
	"context"

	"ai-menu-builder/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating a single text completion.
// The system instruction frames the model's role; user carries the
// request payload. Callers expect the completion to parse as JSON and
// must treat a parse failure as retryable, not fatal.
type TextGenerator interface {
	GenerateContent(ctx context.Context, system, user string) (ContentResponse, error)
}

// EmbeddingGenerator is an interface for generating vector embeddings from text.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
