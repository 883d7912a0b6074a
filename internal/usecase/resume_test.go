package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestResumeParse_CleansExtractedText(t *testing.T) {
	extractor := &stubExtractor{text: "Jane Doe Backend Engineer 4 years of Java Page 1 of 2"}
	aiStub := &stubAI{chat: func(system, user string) (string, error) {
		require.Contains(t, system, agentResumeCleaner.Role)
		require.Contains(t, user, "Page 1 of 2")
		return `{"parsed_text": "Jane Doe\nBackend Engineer\n4 years of Java"}`, nil
	}}
	svc := NewResumeService(aiStub, extractor, "gpt-4o-mini", 6000)

	text, err := svc.Parse(context.Background(), ResumeParseInput{FileName: "resume.pdf", Content: []byte("%PDF-")})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nBackend Engineer\n4 years of Java", text)
	assert.Equal(t, "resume.pdf", extractor.fileName)
}

func TestResumeParse_EmptyFileRejected(t *testing.T) {
	svc := NewResumeService(&stubAI{}, &stubExtractor{}, "m", 0)
	_, err := svc.Parse(context.Background(), ResumeParseInput{FileName: "resume.pdf"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestResumeParse_ExtractorFailureIsFatal(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("tika down")}
	svc := NewResumeService(&stubAI{}, extractor, "m", 0)
	_, err := svc.Parse(context.Background(), ResumeParseInput{FileName: "resume.pdf", Content: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tika down")
}

func TestResumeParse_NoTextExtracted(t *testing.T) {
	extractor := &stubExtractor{text: "   \n  "}
	svc := NewResumeService(&stubAI{}, extractor, "m", 0)
	_, err := svc.Parse(context.Background(), ResumeParseInput{FileName: "scan.pdf", Content: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestResumeParse_GarbageModelOutput(t *testing.T) {
	extractor := &stubExtractor{text: "some resume text"}
	aiStub := &stubAI{chat: func(string, string) (string, error) {
		return "I cleaned it up for you!", nil
	}}
	svc := NewResumeService(aiStub, extractor, "m", 0)
	_, err := svc.Parse(context.Background(), ResumeParseInput{FileName: "resume.pdf", Content: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}
