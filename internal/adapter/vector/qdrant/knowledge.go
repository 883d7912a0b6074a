package qdrant

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// KnowledgeStore adapts the Qdrant client to the domain knowledge ports. Each
// point is one note chunk with its text, owning user and source note in the
// payload, so searches can be scoped per user.
type KnowledgeStore struct {
	client     *Client
	ai         domain.AIClient
	collection string
}

// NewKnowledgeStore wires a Qdrant collection and an embedding client.
func NewKnowledgeStore(client *Client, ai domain.AIClient, collection string) *KnowledgeStore {
	return &KnowledgeStore{client: client, ai: ai, collection: collection}
}

// Ensure creates the backing collection if missing.
func (s *KnowledgeStore) Ensure(ctx domain.Context, vectorSize int) error {
	if err := s.client.EnsureCollection(ctx, s.collection, vectorSize, "Cosine"); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

// Search embeds the query and returns matching note chunks for the user.
// An empty slice is a valid "nothing studied" outcome, not an error.
func (s *KnowledgeStore) Search(ctx domain.Context, query string, topK int, userID string) ([]domain.KnowledgeHit, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	if topK <= 0 {
		topK = 5
	}
	vecs, err := s.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	var filter map[string]any
	if userID != "" {
		filter = map[string]any{
			"must": []map[string]any{
				{"key": "user_id", "match": map[string]any{"value": userID}},
			},
		}
	}
	res, err := s.client.Search(ctx, s.collection, vecs[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	hits := make([]domain.KnowledgeHit, 0, len(res))
	for _, r := range res {
		hit := domain.KnowledgeHit{}
		if sc, ok := r["score"].(float64); ok {
			hit.Score = sc
		}
		payload, _ := r["payload"].(map[string]any)
		if payload != nil {
			if txt, ok := payload["text"].(string); ok {
				hit.Content = txt
			}
			if nid, ok := payload["note_id"].(string); ok {
				hit.SourceID = nid
			}
		}
		if hit.Content == "" {
			continue
		}
		hits = append(hits, hit)
	}
	slog.Debug("knowledge search", slog.String("query", query), slog.Int("hits", len(hits)))
	return hits, nil
}

// Index upserts embedded note chunks with user and note metadata.
func (s *KnowledgeStore) Index(ctx domain.Context, userID, noteID string, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: chunks and vectors length mismatch", domain.ErrInvalidArgument)
	}
	payloads := make([]map[string]any, len(chunks))
	ids := make([]any, len(chunks))
	for i := range chunks {
		payloads[i] = map[string]any{
			"text":    chunks[i],
			"user_id": userID,
			"note_id": noteID,
			"chunk":   i,
		}
		ids[i] = uuid.NewString()
	}
	if err := s.client.UpsertPoints(ctx, s.collection, vectors, payloads, ids); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}
