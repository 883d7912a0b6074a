// Package usecase contains the interview workflow services.
package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const maxQuestionCount = 20

// PrepareInput is the Phase 1 request.
type PrepareInput struct {
	UserID        string
	ResumeText    string
	JDText        string
	QuestionCount int
	Difficulty    domain.Difficulty
}

// PrepareService builds the interview scenario: resume and job-description
// analyses fan out concurrently, study notes are retrieved per job keyword,
// the candidate profile and question allocation are computed in code, and the
// model fills in the question plan.
type PrepareService struct {
	AI        domain.AIClient
	Knowledge domain.KnowledgeSearcher
	Policy    config.DecisionPolicy
	ChatModel string
	MaxTokens int
}

// NewPrepareService constructs a PrepareService with its dependencies.
func NewPrepareService(aiClient domain.AIClient, knowledge domain.KnowledgeSearcher, policy config.DecisionPolicy, chatModel string, maxTokens int) PrepareService {
	return PrepareService{AI: aiClient, Knowledge: knowledge, Policy: policy, ChatModel: chatModel, MaxTokens: maxTokens}
}

// Prepare runs Phase 1 and returns one immutable scenario. Atomic: any failed
// collaborator call (other than per-keyword retrieval) fails the whole call.
func (s PrepareService) Prepare(ctx domain.Context, in PrepareInput) (domain.InterviewScenario, error) {
	tracer := otel.Tracer("usecase.prepare")
	ctx, span := tracer.Start(ctx, "prepare.Prepare")
	defer span.End()

	if strings.TrimSpace(in.ResumeText) == "" {
		return domain.InterviewScenario{}, fmt.Errorf("%w: resume text required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.JDText) == "" {
		return domain.InterviewScenario{}, fmt.Errorf("%w: job description text required", domain.ErrInvalidArgument)
	}
	if in.QuestionCount < 1 || in.QuestionCount > maxQuestionCount {
		return domain.InterviewScenario{}, fmt.Errorf("%w: question count must be 1..%d", domain.ErrInvalidArgument, maxQuestionCount)
	}
	if !in.Difficulty.Valid() {
		return domain.InterviewScenario{}, fmt.Errorf("%w: difficulty must be EASY, MEDIUM or HARD", domain.ErrInvalidArgument)
	}

	resumeText := clampText(in.ResumeText, s.ChatModel, s.MaxTokens)
	jdText := clampText(in.JDText, s.ChatModel, s.MaxTokens)

	// Resume and JD analyses have no data dependency; fan out.
	var resume domain.ResumeAnalysis
	var jd domain.JobRequirement
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.AI.ChatJSON(gctx, systemPrompt(agentResumeAnalyst), resumeAnalysisPrompt(resumeText), 2048)
		if err != nil {
			return fmt.Errorf("op=prepare.resume_analysis: %w", err)
		}
		resume, err = ai.Normalize[domain.ResumeAnalysis](raw)
		if err != nil {
			return fmt.Errorf("op=prepare.resume_analysis: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		raw, err := s.AI.ChatJSON(gctx, systemPrompt(agentJDAnalyst), jdAnalysisPrompt(jdText), 2048)
		if err != nil {
			return fmt.Errorf("op=prepare.jd_analysis: %w", err)
		}
		jd, err = ai.Normalize[domain.JobRequirement](raw)
		if err != nil {
			return fmt.Errorf("op=prepare.jd_analysis: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.InterviewScenario{}, err
	}
	if resume.Sparse() {
		slog.Warn("resume analysis is sparse; proceeding with thin profile", slog.String("user_id", in.UserID))
	}
	jd = mergeAmbiguousSkills(jd)

	// Retrieval fans out per extracted keyword after the JD analysis
	// completes. Per-keyword failures become no_result entries, never errors.
	retrieval := s.retrieveNotes(ctx, jd.KeyInterviewKeywords, in.UserID)

	profile := synthesizeProfile(resume, jd, retrieval)
	dist := allocateCategories(in.QuestionCount)

	raw, err := s.AI.ChatJSON(ctx, systemPrompt(agentPlanner), scenarioPrompt(profile, retrieval, dist, in.QuestionCount, in.Difficulty), 4096)
	if err != nil {
		return domain.InterviewScenario{}, fmt.Errorf("op=prepare.scenario: %w", err)
	}
	scenario, err := ai.Normalize[domain.InterviewScenario](raw, "scenario")
	if err != nil {
		return domain.InterviewScenario{}, fmt.Errorf("op=prepare.scenario: %w", err)
	}
	if err := validateScenario(scenario, in.QuestionCount, dist); err != nil {
		return domain.InterviewScenario{}, fmt.Errorf("op=prepare.scenario: %w", err)
	}

	scenario.TotalQuestions = in.QuestionCount
	scenario.DifficultyBase = in.Difficulty
	scenario.Distribution = dist
	scenario.Profile = &profile
	scenario.Retrieval = retrieval
	return scenario, nil
}

// retrieveNotes searches the candidate's study notes per keyword concurrently.
// Keywords yielding nothing (or failing) are recorded as no_result; absence of
// data stays visible rather than being dropped or fabricated.
func (s PrepareService) retrieveNotes(ctx domain.Context, keywords []string, userID string) []domain.NoteSearchResult {
	results := make([]domain.NoteSearchResult, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		g.Go(func() error {
			hits, err := s.Knowledge.Search(gctx, kw, s.Policy.RetrievalTopK, userID)
			if err != nil {
				slog.Warn("note retrieval failed for keyword", slog.String("keyword", kw), slog.Any("error", err))
				results[i] = domain.NoteSearchResult{Keyword: kw, NoResult: true}
				observability.ObserveRetrieval(false)
				return nil
			}
			results[i] = domain.NoteSearchResult{Keyword: kw, Hits: hits, NoResult: len(hits) == 0}
			observability.ObserveRetrieval(len(hits) > 0)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// mergeAmbiguousSkills enforces the tie-break: a skill present in both lists
// is required, not preferred.
func mergeAmbiguousSkills(jd domain.JobRequirement) domain.JobRequirement {
	required := make(map[string]bool, len(jd.RequiredSkills))
	for _, r := range jd.RequiredSkills {
		required[normalizeSkill(r.Name)] = true
	}
	kept := jd.PreferredSkills[:0]
	for _, p := range jd.PreferredSkills {
		if !required[normalizeSkill(p.Name)] {
			kept = append(kept, p)
		}
	}
	jd.PreferredSkills = kept
	return jd
}

func normalizeSkill(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// synthesizeProfile computes the candidate profile deterministically from the
// three analysis outputs. The weighted match score is
// 0.7*required + 0.2*preferred + 0.1*experience fit, scaled 0-100.
func synthesizeProfile(resume domain.ResumeAnalysis, jd domain.JobRequirement, retrieval []domain.NoteSearchResult) domain.CandidateProfile {
	resumeSkills := make(map[string]domain.Skill, len(resume.Skills))
	for _, sk := range resume.Skills {
		resumeSkills[normalizeSkill(sk.Name)] = sk
	}
	studied := make(map[string]bool, len(retrieval))
	for _, r := range retrieval {
		if !r.NoResult {
			studied[normalizeSkill(r.Keyword)] = true
		}
	}

	var profile domain.CandidateProfile
	var requiredMatched int
	for _, req := range jd.RequiredSkills {
		key := normalizeSkill(req.Name)
		if sk, ok := resumeSkills[key]; ok {
			requiredMatched++
			profile.Strengths = append(profile.Strengths, domain.ProfileStrength{
				Skill:          req.Name,
				Evidence:       skillEvidence(sk, resume.Projects),
				InterviewPoint: "verify depth with a concrete experience question",
			})
		} else {
			profile.Weaknesses = append(profile.Weaknesses, domain.ProfileWeakness{
				Skill:              req.Name,
				GapDescription:     fmt.Sprintf("required by the job description, not evidenced in the resume: %s", req.Name),
				CompensableByStudy: studied[key],
				InterviewPoint:     "check learning attitude and baseline understanding",
			})
		}
		profile.SkillMatrix = append(profile.SkillMatrix, matrixRow(req.Name, "required", resumeSkills, studied))
	}
	var preferredMatched int
	for _, pref := range jd.PreferredSkills {
		if _, ok := resumeSkills[normalizeSkill(pref.Name)]; ok {
			preferredMatched++
		}
		profile.SkillMatrix = append(profile.SkillMatrix, matrixRow(pref.Name, "preferred", resumeSkills, studied))
	}

	requiredMatch := ratio(requiredMatched, len(jd.RequiredSkills))
	preferredMatch := ratio(preferredMatched, len(jd.PreferredSkills))
	experienceFit := experienceFitScore(resume.ExperienceYears, jd.ExpectedLevel)
	profile.MatchScore = domain.MatchScore{
		RequiredSkillsMatch:  round1(requiredMatch * 100),
		PreferredSkillsMatch: round1(preferredMatch * 100),
		ExperienceFit:        round1(experienceFit * 100),
		OverallScore:         round1((0.7*requiredMatch + 0.2*preferredMatch + 0.1*experienceFit) * 100),
	}
	return profile
}

func skillEvidence(sk domain.Skill, projects []domain.Project) string {
	for _, p := range projects {
		for _, tech := range p.TechStack {
			if normalizeSkill(tech) == normalizeSkill(sk.Name) {
				return fmt.Sprintf("%s skill used in project %q (%s)", sk.Level, p.Name, p.Role)
			}
		}
	}
	if sk.UsagePeriod != "" {
		return fmt.Sprintf("%s skill, used for %s", sk.Level, sk.UsagePeriod)
	}
	return fmt.Sprintf("listed as a %s skill in the resume", sk.Level)
}

func matrixRow(name, requirement string, resumeSkills map[string]domain.Skill, studied map[string]bool) domain.SkillMatrixRow {
	row := domain.SkillMatrixRow{Skill: name, JDRequirement: requirement}
	key := normalizeSkill(name)
	if sk, ok := resumeSkills[key]; ok {
		switch normalizeSkill(sk.Level) {
		case "primary":
			row.CandidateLevel = "high"
		case "secondary":
			row.CandidateLevel = "medium"
		default:
			row.CandidateLevel = "low"
		}
	} else {
		row.CandidateLevel = "none"
	}
	if studied[key] {
		row.StudyLevel = "studied"
	} else {
		row.StudyLevel = "not_studied"
	}
	switch {
	case row.CandidateLevel == "high":
		row.QuestionDepth = "deep"
	case row.CandidateLevel == "none" && requirement == "preferred" && !studied[key]:
		row.QuestionDepth = "skip"
	default:
		row.QuestionDepth = "basic"
	}
	return row
}

func ratio(matched, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(matched) / float64(total)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

var experienceRank = map[string]int{"junior": 1, "mid": 2, "senior": 3, "lead": 4}

// experienceFitScore compares the resume's experience tier against the JD's
// position level. Unknown tiers on either side score a neutral 0.5.
func experienceFitScore(exp domain.ExperienceLevel, expected domain.ExpectedLevel) float64 {
	have, okHave := experienceRank[normalizeSkill(exp.Level)]
	want, okWant := experienceRank[normalizeSkill(expected.PositionLevel)]
	if !okHave || !okWant {
		return 0.5
	}
	switch {
	case have >= want:
		return 1
	case want-have == 1:
		return 0.6
	default:
		return 0.2
	}
}

// allocateCategories splits the question count 40/40/20 with the remainder
// rounding toward strength, then weakness.
func allocateCategories(count int) domain.CategoryDistribution {
	dist := domain.CategoryDistribution{
		Strength:   count * 40 / 100,
		Weakness:   count * 40 / 100,
		Behavioral: count * 20 / 100,
	}
	for dist.Total() < count {
		if dist.Strength <= dist.Weakness {
			dist.Strength++
		} else {
			dist.Weakness++
		}
	}
	return dist
}

// validateScenario rejects model output that violates the plan: wrong question
// count, duplicate ids, category counts differing from the allocation, or
// invalid difficulty tiers.
func validateScenario(s domain.InterviewScenario, count int, dist domain.CategoryDistribution) error {
	if len(s.Questions) != count {
		return fmt.Errorf("%w: expected %d questions, got %d", domain.ErrSchemaInvalid, count, len(s.Questions))
	}
	seen := make(map[string]bool, len(s.Questions))
	got := domain.CategoryDistribution{}
	for _, q := range s.Questions {
		if q.ID == "" || seen[q.ID] {
			return fmt.Errorf("%w: duplicate or empty question id %q", domain.ErrSchemaInvalid, q.ID)
		}
		seen[q.ID] = true
		if !q.Difficulty.Valid() {
			return fmt.Errorf("%w: question %s has invalid difficulty %q", domain.ErrSchemaInvalid, q.ID, q.Difficulty)
		}
		switch q.Category {
		case domain.CategoryStrength:
			got.Strength++
		case domain.CategoryWeakness:
			got.Weakness++
		case domain.CategoryBehavioral:
			got.Behavioral++
		default:
			return fmt.Errorf("%w: question %s has invalid category %q", domain.ErrSchemaInvalid, q.ID, q.Category)
		}
	}
	if got != dist {
		return fmt.Errorf("%w: category distribution %+v does not match plan %+v", domain.ErrSchemaInvalid, got, dist)
	}
	return nil
}
