package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestFormatConversationLog_Window(t *testing.T) {
	var history []domain.Turn
	for i := 0; i < 12; i++ {
		history = append(history, domain.Turn{
			Question: "question-" + string(rune('a'+i)),
			Answer:   "answer",
			Score:    5,
		})
	}
	log := formatConversationLog(history, 10)
	assert.NotContains(t, log, "question-a")
	assert.NotContains(t, log, "question-b")
	assert.Contains(t, log, "question-c")
	assert.Contains(t, log, "question-l")
	assert.Contains(t, log, "[Score: 5]")
}

func TestFormatConversationLog_Empty(t *testing.T) {
	assert.Equal(t, "(no prior turns)", formatConversationLog(nil, 10))
}

func TestFormatTranscript(t *testing.T) {
	turns := []domain.Turn{
		{Type: domain.TurnMain, Question: "q1?", Answer: "a1", Feedback: "good"},
		{Type: domain.TurnFollowUp, Question: "q1f?", Answer: "a2"},
	}
	got := formatTranscript(turns)
	assert.Contains(t, got, "== Turn 1 ==")
	assert.Contains(t, got, "== Turn 2 ==")
	assert.Contains(t, got, "Question [MAIN]: q1?")
	assert.Contains(t, got, "Question [FOLLOW_UP]: q1f?")
	assert.Contains(t, got, "Feedback: good")
}

func TestFormatNotes(t *testing.T) {
	assert.Equal(t, "(no study notes found)", formatNotes(nil))
	got := formatNotes([]domain.KnowledgeHit{{Content: "MVCC"}, {Content: "WAL"}})
	assert.Equal(t, "- MVCC\n- WAL", got)
}

func TestPromptsEndWithJSONContract(t *testing.T) {
	q := domain.Question{ID: "q1", Text: "why?", EvaluationCriteria: []string{"depth"}}
	prompts := map[string]string{
		"resume":      resumeAnalysisPrompt("resume text"),
		"jd":          jdAnalysisPrompt("jd text"),
		"evaluation":  evaluationPrompt(q, "answer", nil, nil, 10, "probe when vague"),
		"interviewer": interviewerPrompt(domain.DecisionFollowUp, q, "answer", nil, 10),
		"report":      reportPrompt([]domain.Turn{{Question: "q", Answer: "a", Score: 5}}, domain.JobRequirement{}, 50, domain.KnowledgeGapSummary{}),
		"quiz":        quizGeneratePrompt([]string{"go"}, "MEDIUM", 3, nil, nil),
		"quiz eval":   quizEvaluatePrompt("q", "a", []string{"x", "y"}, "x"),
	}
	for name, p := range prompts {
		assert.True(t, strings.Contains(p, "ONLY valid JSON"), "%s prompt is missing the JSON-only contract", name)
	}
}

func TestInterviewerPrompt_OmitsEvaluationCriteria(t *testing.T) {
	q := domain.Question{ID: "q1", Text: "why?", EvaluationCriteria: []string{"secret criterion"}}
	history := []domain.Turn{{Question: "prev?", Answer: "prev answer", Score: 3}}
	p := interviewerPrompt(domain.DecisionNextQuestion, q, "answer", history, 10)
	assert.NotContains(t, p, "secret criterion")
}
