package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// ResumeParseInput is one uploaded resume document.
type ResumeParseInput struct {
	FileName string
	Content  []byte
}

// ResumeService turns an uploaded resume document into clean plain text ready
// for interview preparation: extract through the document extractor, then
// repair extraction artifacts with the model.
type ResumeService struct {
	AI        domain.AIClient
	Extractor domain.TextExtractor
	ChatModel string
	MaxTokens int
}

// NewResumeService constructs a ResumeService.
func NewResumeService(aiClient domain.AIClient, extractor domain.TextExtractor, chatModel string, maxTokens int) ResumeService {
	return ResumeService{AI: aiClient, Extractor: extractor, ChatModel: chatModel, MaxTokens: maxTokens}
}

type parsedResume struct {
	ParsedText string `json:"parsed_text" validate:"required"`
}

// Parse extracts text from the document and cleans it with the model. The
// cleanup is part of the contract: raw extractor output carries layout debris
// that poisons downstream analysis prompts.
func (s ResumeService) Parse(ctx domain.Context, in ResumeParseInput) (string, error) {
	tracer := otel.Tracer("usecase.resume")
	ctx, span := tracer.Start(ctx, "resume.Parse")
	defer span.End()
	span.SetAttributes(attribute.String("resume.file_name", in.FileName))

	if len(in.Content) == 0 {
		return "", fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument)
	}
	if s.Extractor == nil {
		return "", fmt.Errorf("op=resume.parse: %w: extractor not configured", domain.ErrInternal)
	}

	raw, err := s.Extractor.Extract(ctx, in.FileName, in.Content)
	if err != nil {
		return "", fmt.Errorf("op=resume.parse: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("op=resume.parse: %w: no text extracted from %s", domain.ErrInvalidArgument, in.FileName)
	}
	raw = clampText(raw, s.ChatModel, s.MaxTokens)

	out, err := s.AI.ChatJSON(ctx, systemPrompt(agentResumeCleaner), resumeCleanupPrompt(raw), 4096)
	if err != nil {
		return "", fmt.Errorf("op=resume.parse: %w", err)
	}
	parsed, err := ai.Normalize[parsedResume](out, "parsed")
	if err != nil {
		return "", fmt.Errorf("op=resume.parse: %w", err)
	}

	slog.Info("resume parsed",
		slog.String("file_name", in.FileName),
		slog.Int("raw_chars", len(raw)),
		slog.Int("clean_chars", len(parsed.ParsedText)))
	return parsed.ParsedText, nil
}
