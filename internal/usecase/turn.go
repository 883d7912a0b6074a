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

// TurnInput is one Phase 2 call: the caller owns the session state (history,
// counters) and threads it through; the core retains nothing between calls.
type TurnInput struct {
	UserID         string
	Scenario       domain.InterviewScenario
	QuestionID     string
	Answer         string
	FollowUpCount  int
	RemainingCount int
	History        []domain.Turn
}

// TurnService evaluates one answer and decides the next interview action.
// Evaluation always precedes the decision; the decision itself is a pure
// function of the evaluation and the session counters.
type TurnService struct {
	AI        domain.AIClient
	Knowledge domain.KnowledgeSearcher
	Policy    config.DecisionPolicy
}

// NewTurnService constructs a TurnService with its dependencies.
func NewTurnService(aiClient domain.AIClient, knowledge domain.KnowledgeSearcher, policy config.DecisionPolicy) TurnService {
	return TurnService{AI: aiClient, Knowledge: knowledge, Policy: policy}
}

// interviewerReply is the wire shape of the interviewer message call.
type interviewerReply struct {
	Message      string `json:"message" validate:"required"`
	FollowUpText string `json:"follow_up_text"`
}

// Evaluate runs one turn. Atomic: an invalid model output fails the whole
// call; scores are never defaulted.
func (s TurnService) Evaluate(ctx domain.Context, in TurnInput) (domain.TurnEvaluation, domain.InterviewDecision, error) {
	tracer := otel.Tracer("usecase.turn")
	ctx, span := tracer.Start(ctx, "turn.Evaluate")
	defer span.End()

	q, ok := in.Scenario.QuestionByID(in.QuestionID)
	if !ok {
		// Follow-up turns reference a synthesized id like q3-f1; evaluate
		// against the owning main question's criteria.
		mainID, isFollowUp := strings.CutSuffix(in.QuestionID, "-f1")
		if !isFollowUp {
			return domain.TurnEvaluation{}, domain.InterviewDecision{}, fmt.Errorf("%w: question %q not in scenario", domain.ErrInvalidArgument, in.QuestionID)
		}
		q, ok = in.Scenario.QuestionByID(mainID)
		if !ok {
			return domain.TurnEvaluation{}, domain.InterviewDecision{}, fmt.Errorf("%w: question %q not in scenario", domain.ErrInvalidArgument, in.QuestionID)
		}
	}
	if in.FollowUpCount < 0 || in.RemainingCount < 0 {
		return domain.TurnEvaluation{}, domain.InterviewDecision{}, fmt.Errorf("%w: negative session counter", domain.ErrInvalidArgument)
	}

	// The note lookup is mandatory before any gap classification. A lookup
	// failure is tolerated as "nothing found": gaps then classify as
	// not_studied, which is the conservative reading.
	notes := s.lookupNotes(ctx, q, in.UserID)

	raw, err := s.AI.ChatJSON(ctx, systemPrompt(agentEvaluator),
		evaluationPrompt(q, in.Answer, notes, in.History, s.Policy.HistoryWindow, s.Policy.ProbeGuidance), 1536)
	if err != nil {
		return domain.TurnEvaluation{}, domain.InterviewDecision{}, fmt.Errorf("op=turn.evaluate: %w", err)
	}
	eval, err := ai.Normalize[domain.TurnEvaluation](raw)
	if err != nil {
		return domain.TurnEvaluation{}, domain.InterviewDecision{}, fmt.Errorf("op=turn.evaluate: %w", err)
	}
	if len(notes) == 0 {
		// Empty retrieval means nothing was studied; the model may not
		// claim otherwise.
		eval.NoteComparison.NotStudied = append(eval.NoteComparison.NotStudied, eval.NoteComparison.StudiedButMissed...)
		eval.NoteComparison.StudiedButMissed = nil
	}

	decision := decideNext(eval, q, in.FollowUpCount, in.RemainingCount, s.Policy.MaxFollowUps)

	reply, err := s.interviewerMessage(ctx, decision, q, in)
	if err != nil {
		return domain.TurnEvaluation{}, domain.InterviewDecision{}, err
	}

	out := domain.InterviewDecision{Decision: decision, Message: reply.Message}
	switch decision {
	case domain.DecisionFollowUp:
		if strings.TrimSpace(reply.FollowUpText) == "" {
			return domain.TurnEvaluation{}, domain.InterviewDecision{}, fmt.Errorf("op=turn.follow_up: %w: empty follow-up text", domain.ErrSchemaInvalid)
		}
		out.NextQuestion = &domain.Question{
			ID:                 q.ID + "-f1",
			Category:           q.Category,
			SkillTarget:        q.SkillTarget,
			Difficulty:         q.Difficulty,
			Text:               reply.FollowUpText,
			EvaluationCriteria: q.EvaluationCriteria,
		}
	case domain.DecisionNextQuestion:
		next, ok := s.nextMainQuestion(in.Scenario, q.ID)
		if !ok {
			return domain.TurnEvaluation{}, domain.InterviewDecision{}, fmt.Errorf("op=turn.next: %w: no question after %s", domain.ErrInternal, q.ID)
		}
		out.NextQuestion = &next
	}

	observability.ObserveTurn(string(decision), float64(eval.Score))
	slog.Info("turn evaluated",
		slog.String("question_id", in.QuestionID),
		slog.Int("score", eval.Score),
		slog.String("decision", string(decision)))
	return eval, out, nil
}

func (s TurnService) lookupNotes(ctx domain.Context, q domain.Question, userID string) []domain.KnowledgeHit {
	query := q.SkillTarget
	if query == "" {
		query = q.Text
	}
	if len(q.EvaluationCriteria) > 0 {
		query += " " + strings.Join(q.EvaluationCriteria, " ")
	}
	hits, err := s.Knowledge.Search(ctx, query, s.Policy.RetrievalTopK, userID)
	if err != nil {
		slog.Warn("note lookup failed; classifying gaps as not_studied", slog.String("question_id", q.ID), slog.Any("error", err))
		observability.ObserveRetrieval(false)
		return nil
	}
	observability.ObserveRetrieval(len(hits) > 0)
	return hits
}

// decideNext is the decision engine. Pure: same inputs, same decision.
// Exhausted questions always end the session, even when a follow-up would
// otherwise be warranted. A question with no follow-up guide is never probed.
func decideNext(eval domain.TurnEvaluation, q domain.Question, followUpCount, remainingCount, maxFollowUps int) domain.Decision {
	if remainingCount == 0 {
		return domain.DecisionEnd
	}
	if eval.NeedsFollowUp && followUpCount < maxFollowUps && q.FollowUpGuide != nil {
		return domain.DecisionFollowUp
	}
	return domain.DecisionNextQuestion
}

func (s TurnService) interviewerMessage(ctx domain.Context, decision domain.Decision, q domain.Question, in TurnInput) (interviewerReply, error) {
	raw, err := s.AI.ChatJSON(ctx, systemPrompt(agentInterviewer),
		interviewerPrompt(decision, q, in.Answer, in.History, s.Policy.HistoryWindow), 768)
	if err != nil {
		return interviewerReply{}, fmt.Errorf("op=turn.message: %w", err)
	}
	reply, err := ai.Normalize[interviewerReply](raw)
	if err != nil {
		return interviewerReply{}, fmt.Errorf("op=turn.message: %w", err)
	}
	return reply, nil
}

// nextMainQuestion resolves the scenario question following the given main
// question id, in fixed sequence order. Follow-up turns advance from their
// owning main question.
func (s TurnService) nextMainQuestion(scenario domain.InterviewScenario, currentID string) (domain.Question, bool) {
	return scenario.NextAfter(currentID)
}
