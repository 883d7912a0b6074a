package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// EmbedInput is one markdown study note to embed.
type EmbedInput struct {
	UserID   string
	Title    string
	Tags     []string
	Markdown string
}

// KnowledgeService chunks study notes, embeds them, upserts the vectors, and
// records note metadata.
type KnowledgeService struct {
	AI         domain.AIClient
	Indexer    domain.KnowledgeIndexer
	Notes      domain.NoteRepository
	ChunkSize  int
	EmbedModel string
}

// NewKnowledgeService constructs a KnowledgeService.
func NewKnowledgeService(aiClient domain.AIClient, indexer domain.KnowledgeIndexer, notes domain.NoteRepository, chunkSize int, embedModel string) KnowledgeService {
	return KnowledgeService{AI: aiClient, Indexer: indexer, Notes: notes, ChunkSize: chunkSize, EmbedModel: embedModel}
}

// Embed stores one note: chunk, embed, index, then persist metadata.
func (s KnowledgeService) Embed(ctx domain.Context, in EmbedInput) (domain.KnowledgeNote, error) {
	tracer := otel.Tracer("usecase.knowledge")
	ctx, span := tracer.Start(ctx, "knowledge.Embed")
	defer span.End()

	if in.UserID == "" {
		return domain.KnowledgeNote{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Markdown) == "" {
		return domain.KnowledgeNote{}, fmt.Errorf("%w: note text required", domain.ErrInvalidArgument)
	}

	chunks := chunkMarkdown(in.Markdown, s.ChunkSize, s.EmbedModel)
	vectors, err := s.AI.Embed(ctx, chunks)
	if err != nil {
		return domain.KnowledgeNote{}, fmt.Errorf("op=knowledge.embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.KnowledgeNote{}, fmt.Errorf("op=knowledge.embed: %w: got %d vectors for %d chunks", domain.ErrInternal, len(vectors), len(chunks))
	}

	noteID, err := s.Notes.Create(ctx, domain.KnowledgeNote{
		UserID: in.UserID,
		Title:  in.Title,
		Tags:   in.Tags,
		Chunks: len(chunks),
	})
	if err != nil {
		return domain.KnowledgeNote{}, fmt.Errorf("op=knowledge.embed: %w", err)
	}
	if err := s.Indexer.Index(ctx, in.UserID, noteID, chunks, vectors); err != nil {
		return domain.KnowledgeNote{}, fmt.Errorf("op=knowledge.embed: %w", err)
	}

	slog.Info("note embedded", slog.String("note_id", noteID), slog.Int("chunks", len(chunks)))
	n, err := s.Notes.Get(ctx, noteID)
	if err != nil {
		return domain.KnowledgeNote{}, fmt.Errorf("op=knowledge.embed: %w", err)
	}
	return n, nil
}

// List returns the metadata of every note the user has embedded, newest
// first. An empty list is a valid result, not an error.
func (s KnowledgeService) List(ctx domain.Context, userID string) ([]domain.KnowledgeNote, error) {
	tracer := otel.Tracer("usecase.knowledge")
	ctx, span := tracer.Start(ctx, "knowledge.List")
	defer span.End()

	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	notes, err := s.Notes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("op=knowledge.list: %w", err)
	}
	return notes, nil
}

// chunkMarkdown splits a note on paragraph boundaries, packing paragraphs
// into chunks of at most maxTokens tokens. A single oversized paragraph is
// clamped rather than split mid-sentence.
func chunkMarkdown(text string, maxTokens int, model string) []string {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder
	currentTokens := 0
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentTokens = 0
	}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := tokencount.CountTokensDefault(p, model)
		if err != nil {
			n = len(p) / 4
		}
		if n > maxTokens {
			flush()
			chunks = append(chunks, tokencount.ClampDefault(p, model, maxTokens))
			continue
		}
		if currentTokens+n > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		currentTokens += n
	}
	flush()
	if len(chunks) == 0 {
		chunks = []string{strings.TrimSpace(text)}
	}
	return chunks
}
