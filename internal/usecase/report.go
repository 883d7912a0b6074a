package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// ReportInput is the Phase 3 request: the full turn history plus the job
// requirements the interview was planned against.
type ReportInput struct {
	Turns []domain.Turn
	JD    domain.JobRequirement
}

// ReportService aggregates the finished interview into the final report. The
// score arithmetic, grade bucketing, and knowledge-gap rollup are computed in
// code; the model writes the qualitative sections around them.
type ReportService struct {
	AI domain.AIClient
}

// NewReportService constructs a ReportService.
func NewReportService(aiClient domain.AIClient) ReportService {
	return ReportService{AI: aiClient}
}

// reportNarrative is the model's share of the report.
type reportNarrative struct {
	Strengths            []domain.ReportStrength     `json:"strengths"`
	Improvements         []domain.ReportImprovement  `json:"improvements"`
	NextSteps            []domain.NextStep           `json:"next_steps"`
	CommunicationQuality domain.CommunicationQuality `json:"communication_quality" validate:"required"`
}

// Generate runs Phase 3 once, at interview end. An empty history is a
// validation failure, not a best-effort empty report.
func (s ReportService) Generate(ctx domain.Context, in ReportInput) (domain.InterviewReport, error) {
	tracer := otel.Tracer("usecase.report")
	ctx, span := tracer.Start(ctx, "report.Generate")
	defer span.End()

	if len(in.Turns) == 0 {
		return domain.InterviewReport{}, fmt.Errorf("%w: empty turn history", domain.ErrInvalidArgument)
	}
	for _, t := range in.Turns {
		if t.Score < 1 || t.Score > 10 {
			return domain.InterviewReport{}, fmt.Errorf("%w: turn %s has score %d outside 1..10", domain.ErrInvalidArgument, t.QuestionID, t.Score)
		}
	}

	base := weightedBaseScore(in.Turns)
	gaps := rollupKnowledgeGaps(in.Turns)

	raw, err := s.AI.ChatJSON(ctx, systemPrompt(agentCoach), reportPrompt(in.Turns, in.JD, base, gaps), 3072)
	if err != nil {
		return domain.InterviewReport{}, fmt.Errorf("op=report.generate: %w", err)
	}
	narrative, err := ai.Normalize[reportNarrative](raw)
	if err != nil {
		return domain.InterviewReport{}, fmt.Errorf("op=report.generate: %w", err)
	}

	overall := clampScore(base+communicationAdjustment(narrative.CommunicationQuality), 0, 100)
	report := domain.InterviewReport{
		OverallScore:         overall,
		Grade:                domain.GradeFor(overall),
		Strengths:            narrative.Strengths,
		Improvements:         narrative.Improvements,
		KnowledgeGapSummary:  gaps,
		NextSteps:            rankNextSteps(narrative.NextSteps),
		CommunicationQuality: narrative.CommunicationQuality,
	}

	observability.ObserveReport(float64(overall))
	slog.Info("report generated",
		slog.Int("turns", len(in.Turns)),
		slog.Int("base_score", base),
		slog.Int("overall_score", overall),
		slog.String("grade", report.Grade))
	return report, nil
}

// weightedBaseScore computes 0.7*mean(main scores) + 0.3*mean(follow-up
// scores), scaled to 0-100. A history with only one turn type uses that mean
// alone.
func weightedBaseScore(turns []domain.Turn) int {
	var mainSum, mainN, fuSum, fuN int
	for _, t := range turns {
		if t.Type == domain.TurnFollowUp {
			fuSum += t.Score
			fuN++
		} else {
			mainSum += t.Score
			mainN++
		}
	}
	var base float64
	switch {
	case mainN > 0 && fuN > 0:
		base = 0.7*float64(mainSum)/float64(mainN) + 0.3*float64(fuSum)/float64(fuN)
	case mainN > 0:
		base = float64(mainSum) / float64(mainN)
	default:
		base = float64(fuSum) / float64(fuN)
	}
	return int(math.Round(base * 10))
}

// communicationAdjustment maps the 1-10 communication score onto a +/-5 point
// adjustment centered on 5.
func communicationAdjustment(c domain.CommunicationQuality) int {
	return clampScore(c.Score-5, -5, 5)
}

func clampScore(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rollupKnowledgeGaps derives the three disjoint gap sets strictly from the
// per-turn note comparisons; nothing is re-inferred. Strong topics are the
// hits of turns scoring >= 7, minus anything flagged weak or unstudied.
func rollupKnowledgeGaps(turns []domain.Turn) domain.KnowledgeGapSummary {
	weak := map[string]bool{}
	unstudied := map[string]bool{}
	strong := map[string]bool{}
	for _, t := range turns {
		for _, topic := range t.NoteComparison.StudiedButMissed {
			weak[topic] = true
		}
		for _, topic := range t.NoteComparison.NotStudied {
			unstudied[topic] = true
		}
		if t.Score >= 7 {
			for _, h := range t.Hits {
				strong[h] = true
			}
		}
	}
	var out domain.KnowledgeGapSummary
	for topic := range strong {
		if !weak[topic] && !unstudied[topic] {
			out.StudiedAndStrong = append(out.StudiedAndStrong, topic)
		}
	}
	for topic := range weak {
		out.StudiedButWeak = append(out.StudiedButWeak, topic)
	}
	for topic := range unstudied {
		if !weak[topic] {
			out.NotStudied = append(out.NotStudied, topic)
		}
	}
	sort.Strings(out.StudiedAndStrong)
	sort.Strings(out.StudiedButWeak)
	sort.Strings(out.NotStudied)
	return out
}

// rankNextSteps caps the list at 5 and renumbers priorities 1..n in the
// order the model ranked them.
func rankNextSteps(steps []domain.NextStep) []domain.NextStep {
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Priority < steps[j].Priority })
	if len(steps) > 5 {
		steps = steps[:5]
	}
	for i := range steps {
		steps[i].Priority = i + 1
	}
	return steps
}
