package app

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/vector/qdrant"
)

// embeddingDim matches the text-embedding-3-small output size.
const embeddingDim = 1536

// EnsureKnowledgeCollection creates the study-note collection when missing.
// A failure is logged, not fatal: retrieval degrades to no_result until the
// vector store comes back.
func EnsureKnowledgeCollection(ctx context.Context, store *qdrant.KnowledgeStore) {
	if store == nil {
		return
	}
	if err := store.Ensure(ctx, embeddingDim); err != nil {
		slog.Warn("qdrant ensure knowledge collection failed", slog.Any("error", err))
	}
}
