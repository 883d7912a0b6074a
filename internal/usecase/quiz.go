package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const maxQuizCount = 20

// QuizGenerateInput requests a quiz batch over the user's study notes.
type QuizGenerateInput struct {
	UserID     string
	Tags       []string
	Difficulty string
	Count      int
}

// QuizEvaluateInput grades one quiz answer.
type QuizEvaluateInput struct {
	Question      string
	Options       []string
	CorrectAnswer string
	Answer        string
}

// QuizService generates and grades note-grounded multiple-choice quizzes.
// Tags with no study notes fall back to web-search snippets for baseline
// context when a web searcher is configured.
type QuizService struct {
	AI        domain.AIClient
	Knowledge domain.KnowledgeSearcher
	Web       domain.WebSearcher
	Policy    config.DecisionPolicy
}

// NewQuizService constructs a QuizService. web may be nil when no search
// provider is configured.
func NewQuizService(aiClient domain.AIClient, knowledge domain.KnowledgeSearcher, web domain.WebSearcher, policy config.DecisionPolicy) QuizService {
	return QuizService{AI: aiClient, Knowledge: knowledge, Web: web, Policy: policy}
}

// Generate builds a quiz set grounded in the user's notes.
func (s QuizService) Generate(ctx domain.Context, in QuizGenerateInput) (domain.QuizSet, error) {
	tracer := otel.Tracer("usecase.quiz")
	ctx, span := tracer.Start(ctx, "quiz.Generate")
	defer span.End()

	if len(in.Tags) == 0 {
		return domain.QuizSet{}, fmt.Errorf("%w: at least one tag required", domain.ErrInvalidArgument)
	}
	if in.Count < 1 || in.Count > maxQuizCount {
		return domain.QuizSet{}, fmt.Errorf("%w: count must be 1..%d", domain.ErrInvalidArgument, maxQuizCount)
	}
	if in.Difficulty == "" {
		in.Difficulty = "MEDIUM"
	}

	notes := make(map[string][]domain.KnowledgeHit, len(in.Tags))
	webContext := make(map[string][]domain.WebResult)
	for _, tag := range in.Tags {
		hits, err := s.Knowledge.Search(ctx, tag, s.Policy.RetrievalTopK, in.UserID)
		if err != nil {
			slog.Warn("quiz note lookup failed", slog.String("tag", tag), slog.Any("error", err))
			hits = nil
		}
		observability.ObserveRetrieval(len(hits) > 0)
		if len(hits) > 0 {
			notes[tag] = hits
			continue
		}
		if s.Web == nil {
			continue
		}
		results, err := s.Web.Search(ctx, tag, 5)
		if err != nil {
			slog.Warn("quiz web fallback failed", slog.String("tag", tag), slog.Any("error", err))
			continue
		}
		if len(results) > 0 {
			webContext[tag] = results
		}
	}
	if len(notes) == 0 && len(webContext) == 0 {
		return domain.QuizSet{}, fmt.Errorf("%w: no study notes or fallback context for tags %v", domain.ErrNotFound, in.Tags)
	}

	raw, err := s.AI.ChatJSON(ctx, systemPrompt(agentQuizGenerator),
		quizGeneratePrompt(in.Tags, in.Difficulty, in.Count, notes, webContext), 3072)
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("op=quiz.generate: %w", err)
	}
	set, err := ai.Normalize[domain.QuizSet](raw)
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("op=quiz.generate: %w", err)
	}
	if err := validateQuizSet(set, in.Count); err != nil {
		return domain.QuizSet{}, fmt.Errorf("op=quiz.generate: %w", err)
	}
	return set, nil
}

// validateQuizSet enforces the contract the prompt states: exact count and
// correct_answer matching one option verbatim.
func validateQuizSet(set domain.QuizSet, count int) error {
	if len(set.Questions) != count {
		return fmt.Errorf("%w: expected %d questions, got %d", domain.ErrSchemaInvalid, count, len(set.Questions))
	}
	for i, q := range set.Questions {
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: question %d correct_answer not among options", domain.ErrSchemaInvalid, i+1)
		}
	}
	return nil
}

// EvaluateAnswer grades one quiz answer with study feedback.
func (s QuizService) EvaluateAnswer(ctx domain.Context, in QuizEvaluateInput) (domain.QuizEvaluation, error) {
	tracer := otel.Tracer("usecase.quiz")
	ctx, span := tracer.Start(ctx, "quiz.EvaluateAnswer")
	defer span.End()

	if strings.TrimSpace(in.Question) == "" || strings.TrimSpace(in.Answer) == "" {
		return domain.QuizEvaluation{}, fmt.Errorf("%w: question and answer required", domain.ErrInvalidArgument)
	}

	raw, err := s.AI.ChatJSON(ctx, systemPrompt(agentQuizEvaluator),
		quizEvaluatePrompt(in.Question, in.Answer, in.Options, in.CorrectAnswer), 1024)
	if err != nil {
		return domain.QuizEvaluation{}, fmt.Errorf("op=quiz.evaluate: %w", err)
	}
	eval, err := ai.Normalize[domain.QuizEvaluation](raw)
	if err != nil {
		return domain.QuizEvaluation{}, fmt.Errorf("op=quiz.evaluate: %w", err)
	}
	// A verbatim match of the correct option is always correct, whatever
	// the model decided. Paraphrases stay the model's call.
	if in.CorrectAnswer != "" && strings.TrimSpace(in.Answer) == in.CorrectAnswer && !eval.IsCorrect {
		slog.Warn("quiz verdict overridden by exact match")
		eval.IsCorrect = true
	}
	return eval, nil
}
