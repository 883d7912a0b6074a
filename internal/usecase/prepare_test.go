package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const (
	stubResumeAnalysis = `{
		"skills": [
			{"name": "Java", "level": "primary", "usage_period": "4 years"},
			{"name": "Kubernetes", "level": "secondary"}
		],
		"projects": [
			{"name": "Payments", "role": "backend engineer", "tech_stack": ["Java", "PostgreSQL"]}
		],
		"experience_years": {"total": "4 years", "level": "mid"}
	}`
	stubJDAnalysis = `{
		"required_skills": [{"name": "Java"}, {"name": "AWS"}],
		"preferred_skills": [{"name": "Kubernetes"}, {"name": "Java"}],
		"expected_level": {"position_level": "senior"},
		"key_interview_keywords": ["Java", "AWS"]
	}`
	stubScenario = `{"scenario": {
		"total_questions": 2,
		"difficulty_base": "MEDIUM",
		"questions": [
			{"id": "q1", "category": "strength", "skill_target": "Java", "difficulty": "MEDIUM",
			 "text": "Walk me through the transaction design of your payments project.",
			 "evaluation_criteria": ["isolation levels", "failure handling"],
			 "follow_up_guide": {"probe_direction": "ask for a concrete failure", "purpose": "verify depth"}},
			{"id": "q2", "category": "weakness", "skill_target": "AWS", "difficulty": "MEDIUM",
			 "text": "How would you approach deploying this service on AWS?",
			 "evaluation_criteria": ["service selection"]}
		]
	}}`
)

func preparePlanRouter(t *testing.T) func(system, user string) (string, error) {
	t.Helper()
	return func(system, _ string) (string, error) {
		switch {
		case strings.Contains(system, agentResumeAnalyst.Role):
			return stubResumeAnalysis, nil
		case strings.Contains(system, agentJDAnalyst.Role):
			return stubJDAnalysis, nil
		case strings.Contains(system, agentPlanner.Role):
			return stubScenario, nil
		default:
			return "", errors.New("unexpected system prompt: " + system)
		}
	}
}

func TestPrepare_BuildsScenario(t *testing.T) {
	aiStub := &stubAI{chat: preparePlanRouter(t)}
	knowledge := &stubKnowledge{search: func(query string, _ int, _ string) ([]domain.KnowledgeHit, error) {
		if query == "Java" {
			return []domain.KnowledgeHit{{SourceID: "n1", Content: "JVM GC notes", Score: 0.9}}, nil
		}
		return nil, nil
	}}
	svc := NewPrepareService(aiStub, knowledge, config.DefaultDecisionPolicy(), "gpt-4o", 6000)

	scenario, err := svc.Prepare(context.Background(), PrepareInput{
		UserID:        "u1",
		ResumeText:    "four years of Java on a payments platform",
		JDText:        "senior backend engineer, Java and AWS required",
		QuestionCount: 2,
		Difficulty:    domain.DifficultyMedium,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, scenario.TotalQuestions)
	assert.Equal(t, domain.DifficultyMedium, scenario.DifficultyBase)
	assert.Equal(t, domain.CategoryDistribution{Strength: 1, Weakness: 1}, scenario.Distribution)
	require.Len(t, scenario.Questions, 2)
	require.NotNil(t, scenario.Profile)

	// One retrieval entry per JD keyword; absence stays visible.
	require.Len(t, scenario.Retrieval, 2)
	byKeyword := map[string]domain.NoteSearchResult{}
	for _, r := range scenario.Retrieval {
		byKeyword[r.Keyword] = r
	}
	assert.False(t, byKeyword["Java"].NoResult)
	assert.True(t, byKeyword["AWS"].NoResult)
	assert.Equal(t, 3, aiStub.chatCalls())
}

func TestPrepare_InputValidation(t *testing.T) {
	svc := NewPrepareService(&stubAI{}, &stubKnowledge{}, config.DefaultDecisionPolicy(), "gpt-4o", 6000)
	cases := []struct {
		name string
		in   PrepareInput
	}{
		{"empty resume", PrepareInput{JDText: "jd", QuestionCount: 5, Difficulty: domain.DifficultyEasy}},
		{"empty jd", PrepareInput{ResumeText: "resume", QuestionCount: 5, Difficulty: domain.DifficultyEasy}},
		{"zero count", PrepareInput{ResumeText: "resume", JDText: "jd", Difficulty: domain.DifficultyEasy}},
		{"count above cap", PrepareInput{ResumeText: "resume", JDText: "jd", QuestionCount: 21, Difficulty: domain.DifficultyEasy}},
		{"bad difficulty", PrepareInput{ResumeText: "resume", JDText: "jd", QuestionCount: 5, Difficulty: "BRUTAL"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Prepare(context.Background(), tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestPrepare_AnalysisFailureIsFatal(t *testing.T) {
	aiStub := &stubAI{chat: func(system, _ string) (string, error) {
		if strings.Contains(system, agentResumeAnalyst.Role) {
			return "", errors.New("upstream exploded")
		}
		return stubJDAnalysis, nil
	}}
	svc := NewPrepareService(aiStub, &stubKnowledge{}, config.DefaultDecisionPolicy(), "gpt-4o", 6000)
	_, err := svc.Prepare(context.Background(), PrepareInput{
		ResumeText: "r", JDText: "j", QuestionCount: 2, Difficulty: domain.DifficultyMedium,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resume_analysis")
}

func TestPrepare_RetrievalFailureIsNotFatal(t *testing.T) {
	aiStub := &stubAI{chat: preparePlanRouter(t)}
	knowledge := &stubKnowledge{search: func(string, int, string) ([]domain.KnowledgeHit, error) {
		return nil, errors.New("vector store down")
	}}
	svc := NewPrepareService(aiStub, knowledge, config.DefaultDecisionPolicy(), "gpt-4o", 6000)
	scenario, err := svc.Prepare(context.Background(), PrepareInput{
		ResumeText: "r", JDText: "j", QuestionCount: 2, Difficulty: domain.DifficultyMedium,
	})
	require.NoError(t, err)
	for _, r := range scenario.Retrieval {
		assert.True(t, r.NoResult)
	}
}

func TestPrepare_RejectsPlanViolatingDistribution(t *testing.T) {
	// Planner returns two strength questions against a 1/1/0 plan.
	badScenario := strings.Replace(stubScenario, `"category": "weakness"`, `"category": "strength"`, 1)
	aiStub := &stubAI{chat: func(system, _ string) (string, error) {
		switch {
		case strings.Contains(system, agentResumeAnalyst.Role):
			return stubResumeAnalysis, nil
		case strings.Contains(system, agentJDAnalyst.Role):
			return stubJDAnalysis, nil
		default:
			return badScenario, nil
		}
	}}
	svc := NewPrepareService(aiStub, &stubKnowledge{}, config.DefaultDecisionPolicy(), "gpt-4o", 6000)
	_, err := svc.Prepare(context.Background(), PrepareInput{
		ResumeText: "r", JDText: "j", QuestionCount: 2, Difficulty: domain.DifficultyMedium,
	})
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestAllocateCategories(t *testing.T) {
	cases := []struct {
		count int
		want  domain.CategoryDistribution
	}{
		{1, domain.CategoryDistribution{Strength: 1}},
		{2, domain.CategoryDistribution{Strength: 1, Weakness: 1}},
		{3, domain.CategoryDistribution{Strength: 2, Weakness: 1}},
		{5, domain.CategoryDistribution{Strength: 2, Weakness: 2, Behavioral: 1}},
		{7, domain.CategoryDistribution{Strength: 3, Weakness: 3, Behavioral: 1}},
		{10, domain.CategoryDistribution{Strength: 4, Weakness: 4, Behavioral: 2}},
		{20, domain.CategoryDistribution{Strength: 8, Weakness: 8, Behavioral: 4}},
	}
	for _, tc := range cases {
		got := allocateCategories(tc.count)
		assert.Equal(t, tc.want, got, "count=%d", tc.count)
		assert.Equal(t, tc.count, got.Total())
	}
}

func TestMergeAmbiguousSkills(t *testing.T) {
	jd := domain.JobRequirement{
		RequiredSkills:  []domain.RequiredSkill{{Name: "Java"}, {Name: "Kubernetes"}},
		PreferredSkills: []domain.RequiredSkill{{Name: "java"}, {Name: "Terraform"}},
	}
	merged := mergeAmbiguousSkills(jd)
	require.Len(t, merged.PreferredSkills, 1)
	assert.Equal(t, "Terraform", merged.PreferredSkills[0].Name)
}

func TestSynthesizeProfile_MatchScore(t *testing.T) {
	resume := domain.ResumeAnalysis{
		Skills: []domain.Skill{
			{Name: "Java", Level: "primary"},
			{Name: "Kubernetes", Level: "secondary"},
			{Name: "React", Level: "exposure"},
		},
		ExperienceYears: domain.ExperienceLevel{Level: "mid"},
	}
	jd := domain.JobRequirement{
		RequiredSkills:  []domain.RequiredSkill{{Name: "Java"}, {Name: "Kubernetes"}, {Name: "AWS"}},
		PreferredSkills: []domain.RequiredSkill{{Name: "React"}},
		ExpectedLevel:   domain.ExpectedLevel{PositionLevel: "senior"},
	}
	retrieval := []domain.NoteSearchResult{
		{Keyword: "AWS", Hits: []domain.KnowledgeHit{{Content: "ECS notes"}}},
	}

	profile := synthesizeProfile(resume, jd, retrieval)

	// required 2/3, preferred 1/1, experience mid vs senior = 0.6
	assert.InDelta(t, 66.7, profile.MatchScore.RequiredSkillsMatch, 0.01)
	assert.InDelta(t, 100.0, profile.MatchScore.PreferredSkillsMatch, 0.01)
	assert.InDelta(t, 60.0, profile.MatchScore.ExperienceFit, 0.01)
	assert.InDelta(t, 72.7, profile.MatchScore.OverallScore, 0.01)

	require.Len(t, profile.Strengths, 2)
	require.Len(t, profile.Weaknesses, 1)
	assert.Equal(t, "AWS", profile.Weaknesses[0].Skill)
	assert.True(t, profile.Weaknesses[0].CompensableByStudy)
	assert.Len(t, profile.SkillMatrix, 4)
}

func TestMatrixRow_Depth(t *testing.T) {
	resumeSkills := map[string]domain.Skill{
		"java": {Name: "Java", Level: "primary"},
	}
	studied := map[string]bool{}

	deep := matrixRow("Java", "required", resumeSkills, studied)
	assert.Equal(t, "high", deep.CandidateLevel)
	assert.Equal(t, "deep", deep.QuestionDepth)

	skip := matrixRow("Rust", "preferred", resumeSkills, studied)
	assert.Equal(t, "none", skip.CandidateLevel)
	assert.Equal(t, "skip", skip.QuestionDepth)

	basic := matrixRow("Rust", "required", resumeSkills, studied)
	assert.Equal(t, "basic", basic.QuestionDepth)
}

func TestExperienceFitScore(t *testing.T) {
	cases := []struct {
		have, want string
		score      float64
	}{
		{"senior", "senior", 1},
		{"lead", "mid", 1},
		{"mid", "senior", 0.6},
		{"junior", "senior", 0.2},
		{"", "senior", 0.5},
		{"mid", "", 0.5},
	}
	for _, tc := range cases {
		got := experienceFitScore(
			domain.ExperienceLevel{Level: tc.have},
			domain.ExpectedLevel{PositionLevel: tc.want},
		)
		assert.Equal(t, tc.score, got, "%s vs %s", tc.have, tc.want)
	}
}

func TestValidateScenario(t *testing.T) {
	dist := domain.CategoryDistribution{Strength: 1, Weakness: 1}
	valid := domain.InterviewScenario{
		Questions: []domain.Question{
			{ID: "q1", Category: domain.CategoryStrength, Difficulty: domain.DifficultyEasy, Text: "a"},
			{ID: "q2", Category: domain.CategoryWeakness, Difficulty: domain.DifficultyHard, Text: "b"},
		},
	}
	assert.NoError(t, validateScenario(valid, 2, dist))

	short := valid
	short.Questions = valid.Questions[:1]
	assert.ErrorIs(t, validateScenario(short, 2, dist), domain.ErrSchemaInvalid)

	dup := valid
	dup.Questions = []domain.Question{valid.Questions[0], valid.Questions[0]}
	assert.ErrorIs(t, validateScenario(dup, 2, dist), domain.ErrSchemaInvalid)

	badTier := valid
	badTier.Questions = append([]domain.Question{}, valid.Questions...)
	badTier.Questions[0].Difficulty = "EXTREME"
	assert.ErrorIs(t, validateScenario(badTier, 2, dist), domain.ErrSchemaInvalid)

	badDist := valid
	badDist.Questions = append([]domain.Question{}, valid.Questions...)
	badDist.Questions[1].Category = domain.CategoryStrength
	assert.ErrorIs(t, validateScenario(badDist, 2, dist), domain.ErrSchemaInvalid)
}
