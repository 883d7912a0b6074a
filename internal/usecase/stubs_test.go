package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// stubAI routes chat calls by system prompt so concurrently issued analysis
// calls resolve deterministically.
type stubAI struct {
	mu    sync.Mutex
	calls []string
	chat  func(system, user string) (string, error)
	embed func(texts []string) ([][]float32, error)
}

func (s *stubAI) ChatJSON(_ context.Context, system, user string, _ int) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, system)
	s.mu.Unlock()
	if s.chat == nil {
		return "", errors.New("chat not stubbed")
	}
	return s.chat(system, user)
}

func (s *stubAI) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.embed == nil {
		return nil, errors.New("embed not stubbed")
	}
	return s.embed(texts)
}

func (s *stubAI) chatCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubKnowledge struct {
	mu      sync.Mutex
	queries []string
	search  func(query string, topK int, userID string) ([]domain.KnowledgeHit, error)
}

func (s *stubKnowledge) Search(_ context.Context, query string, topK int, userID string) ([]domain.KnowledgeHit, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.search == nil {
		return nil, nil
	}
	return s.search(query, topK, userID)
}

type stubWeb struct {
	queries []string
	search  func(query string, limit int) ([]domain.WebResult, error)
}

func (s *stubWeb) Search(_ context.Context, query string, limit int) ([]domain.WebResult, error) {
	s.queries = append(s.queries, query)
	if s.search == nil {
		return nil, nil
	}
	return s.search(query, limit)
}

type indexCall struct {
	userID  string
	noteID  string
	chunks  []string
	vectors [][]float32
}

type stubIndexer struct {
	calls []indexCall
	err   error
}

func (s *stubIndexer) Index(_ context.Context, userID, noteID string, chunks []string, vectors [][]float32) error {
	s.calls = append(s.calls, indexCall{userID: userID, noteID: noteID, chunks: chunks, vectors: vectors})
	return s.err
}

type stubNotes struct {
	created   []domain.KnowledgeNote
	createID  string
	createErr error
	getErr    error
	listErr   error
}

func (s *stubNotes) Create(_ context.Context, n domain.KnowledgeNote) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	n.ID = s.createID
	s.created = append(s.created, n)
	return s.createID, nil
}

func (s *stubNotes) Get(_ context.Context, id string) (domain.KnowledgeNote, error) {
	if s.getErr != nil {
		return domain.KnowledgeNote{}, s.getErr
	}
	for _, n := range s.created {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.KnowledgeNote{}, domain.ErrNotFound
}

func (s *stubNotes) ListByUser(_ context.Context, userID string) ([]domain.KnowledgeNote, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.KnowledgeNote
	for _, n := range s.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type stubExtractor struct {
	text     string
	err      error
	fileName string
}

func (s *stubExtractor) Extract(_ context.Context, fileName string, _ []byte) (string, error) {
	s.fileName = fileName
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}
