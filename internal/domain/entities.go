package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Difficulty tiers for interview and quiz questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Valid reports whether d is a known difficulty tier.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Category classifies a main interview question.
type Category string

const (
	CategoryStrength   Category = "strength"
	CategoryWeakness   Category = "weakness"
	CategoryBehavioral Category = "behavioral"
)

// Skill is a single technology or competency extracted from a resume.
// Level is one of primary/secondary/exposure as judged from the source text.
type Skill struct {
	Name        string `json:"name" validate:"required"`
	Level       string `json:"level"`
	UsagePeriod string `json:"usage_period,omitempty"`
}

// Project is a resume project with the candidate's concrete contribution.
type Project struct {
	Name         string   `json:"name" validate:"required"`
	Duration     string   `json:"duration,omitempty"`
	Role         string   `json:"role,omitempty"`
	TechStack    []string `json:"tech_stack,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
	TeamSize     string   `json:"team_size,omitempty"`
}

// ExperienceLevel summarizes total experience extracted from a resume.
type ExperienceLevel struct {
	Total   string            `json:"total"`
	Level   string            `json:"level"`
	BySkill map[string]string `json:"by_skill,omitempty"`
}

// ResumeAnalysis is the structured output of the resume analysis step.
// Invariant: every entry traces to the resume source text; nothing fabricated.
type ResumeAnalysis struct {
	Skills          []Skill         `json:"skills"`
	Projects        []Project       `json:"projects"`
	ExperienceYears ExperienceLevel `json:"experience_years"`
}

// Sparse reports whether no structured data could be derived from the resume.
// A sparse analysis is not fatal; downstream steps treat it as a thin profile.
func (a ResumeAnalysis) Sparse() bool {
	return len(a.Skills) == 0 && len(a.Projects) == 0
}

// RequiredSkill is a skill the job description demands or prefers.
type RequiredSkill struct {
	Name          string `json:"name" validate:"required"`
	Type          string `json:"type,omitempty"` // hard or soft
	RequiredLevel string `json:"required_level,omitempty"`
}

// ExpectedLevel captures the experience range a job description asks for.
type ExpectedLevel struct {
	ExperienceRange  string   `json:"experience_range,omitempty"`
	PositionLevel    string   `json:"position_level,omitempty"`
	DomainExperience []string `json:"domain_experience,omitempty"`
}

// JobRequirement is the structured output of the job-description analysis
// step. Ambiguous required/preferred classification resolves to required.
type JobRequirement struct {
	RequiredSkills       []RequiredSkill `json:"required_skills"`
	PreferredSkills      []RequiredSkill `json:"preferred_skills"`
	ExpectedLevel        ExpectedLevel   `json:"expected_level"`
	KeyInterviewKeywords []string        `json:"key_interview_keywords"`
}

// KnowledgeHit is a single knowledge-base entry returned by semantic search.
type KnowledgeHit struct {
	SourceID string  `json:"source_id"`
	Content  string  `json:"content"`
	Score    float64 `json:"score,omitempty"`
}

// NoteSearchResult records the retrieval outcome for one job-description
// keyword. NoResult is explicit: absence of data must be visible, never
// silently dropped or fabricated.
type NoteSearchResult struct {
	Keyword  string         `json:"keyword"`
	Hits     []KnowledgeHit `json:"hits,omitempty"`
	NoResult bool           `json:"no_result"`
}

// ProfileStrength is a resume skill matched against a job requirement.
type ProfileStrength struct {
	Skill          string `json:"skill"`
	Evidence       string `json:"evidence"`
	InterviewPoint string `json:"interview_point,omitempty"`
}

// ProfileWeakness is a job requirement the resume does not cover.
type ProfileWeakness struct {
	Skill              string `json:"skill"`
	GapDescription     string `json:"gap_description,omitempty"`
	CompensableByStudy bool   `json:"compensable_by_study"`
	InterviewPoint     string `json:"interview_point,omitempty"`
}

// MatchScore is the weighted resume-to-job fit, scaled 0-100.
// Overall = 0.7*required + 0.2*preferred + 0.1*experience.
type MatchScore struct {
	RequiredSkillsMatch  float64 `json:"required_skills_match"`
	PreferredSkillsMatch float64 `json:"preferred_skills_match"`
	ExperienceFit        float64 `json:"experience_fit"`
	OverallScore         float64 `json:"overall_score"`
}

// SkillMatrixRow maps one required skill to the candidate's level, the
// study-note coverage, and the question depth the interview should use.
type SkillMatrixRow struct {
	Skill          string `json:"skill"`
	JDRequirement  string `json:"jd_requirement"`  // required or preferred
	CandidateLevel string `json:"candidate_level"` // high/medium/low/none
	StudyLevel     string `json:"study_level"`     // studied/partial/not_studied
	QuestionDepth  string `json:"question_depth"`  // deep/basic/skip
}

// CandidateProfile combines resume analysis, job requirements, and knowledge
// retrieval into the interview planning input. Created once per session and
// immutable after Phase 1.
type CandidateProfile struct {
	Strengths   []ProfileStrength `json:"strengths"`
	Weaknesses  []ProfileWeakness `json:"weaknesses"`
	MatchScore  MatchScore        `json:"jd_match_score"`
	SkillMatrix []SkillMatrixRow  `json:"skill_matrix"`
}

// FollowUpGuide holds probe directions and a purpose for at most one follow-up
// per main question. Follow-up text is synthesized at evaluation time from the
// candidate's own answer; the guide never carries pre-written question text.
type FollowUpGuide struct {
	ProbeDirection string `json:"probe_direction" validate:"required"`
	Purpose        string `json:"purpose" validate:"required"`
}

// Question is one entry of an interview scenario.
type Question struct {
	ID                 string         `json:"id" validate:"required"`
	Category           Category       `json:"category"`
	SkillTarget        string         `json:"skill_target"`
	Difficulty         Difficulty     `json:"difficulty"`
	Text               string         `json:"text" validate:"required"`
	EvaluationCriteria []string       `json:"evaluation_criteria"`
	FollowUpGuide      *FollowUpGuide `json:"follow_up_guide,omitempty"`
}

// UnmarshalJSON accepts both snake_case and the legacy camelCase field names
// (skillTarget, evaluationCriteria, followUpGuide) and normalizes at the
// boundary. Internally only the snake_case form exists.
func (q *Question) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID                 string         `json:"id"`
		Category           Category       `json:"category"`
		SkillTarget        string         `json:"skill_target"`
		SkillTargetAlt     string         `json:"skillTarget"`
		Difficulty         Difficulty     `json:"difficulty"`
		Text               string         `json:"text"`
		EvaluationCriteria []string       `json:"evaluation_criteria"`
		EvaluationCritAlt  []string       `json:"evaluationCriteria"`
		FollowUpGuide      *FollowUpGuide `json:"follow_up_guide"`
		FollowUpGuideAlt   *FollowUpGuide `json:"followUpGuide"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	q.ID = w.ID
	q.Category = w.Category
	q.SkillTarget = w.SkillTarget
	if q.SkillTarget == "" {
		q.SkillTarget = w.SkillTargetAlt
	}
	q.Difficulty = w.Difficulty
	q.Text = w.Text
	q.EvaluationCriteria = w.EvaluationCriteria
	if len(q.EvaluationCriteria) == 0 {
		q.EvaluationCriteria = w.EvaluationCritAlt
	}
	q.FollowUpGuide = w.FollowUpGuide
	if q.FollowUpGuide == nil {
		q.FollowUpGuide = w.FollowUpGuideAlt
	}
	return nil
}

// CategoryDistribution is the planned question split per category.
type CategoryDistribution struct {
	Strength   int `json:"strength"`
	Weakness   int `json:"weakness"`
	Behavioral int `json:"behavioral"`
}

// Total returns the summed question count of the distribution.
func (d CategoryDistribution) Total() int { return d.Strength + d.Weakness + d.Behavioral }

// InterviewScenario is the ordered, immutable question plan produced once per
// session by Phase 1 and consumed read-only by Phase 2.
type InterviewScenario struct {
	TotalQuestions int                  `json:"total_questions" validate:"required,min=1"`
	DifficultyBase Difficulty           `json:"difficulty_base"`
	Distribution   CategoryDistribution `json:"distribution"`
	Questions      []Question           `json:"questions" validate:"required,min=1,dive"`
	Profile        *CandidateProfile    `json:"candidate_profile,omitempty"`
	Retrieval      []NoteSearchResult   `json:"knowledge_retrieval,omitempty"`
}

// QuestionByID returns the scenario question with the given id.
func (s InterviewScenario) QuestionByID(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// NextAfter returns the question following id in fixed sequence order.
// Order must never be permuted.
func (s InterviewScenario) NextAfter(id string) (Question, bool) {
	for i, q := range s.Questions {
		if q.ID == id && i+1 < len(s.Questions) {
			return s.Questions[i+1], true
		}
	}
	return Question{}, false
}

// NoteComparison is the three-way comparison of an answer against the
// candidate's own study notes.
type NoteComparison struct {
	StudiedButMissed []string `json:"studied_but_missed"`
	NotStudied       []string `json:"not_studied"`
}

// TurnEvaluation is the per-answer assessment. Score is on a fixed 1-10
// ordinal scale. Created fresh per turn and never mutated after creation.
type TurnEvaluation struct {
	Score          int            `json:"score" validate:"required,min=1,max=10"`
	Hits           []string       `json:"hits"`
	Misses         []string       `json:"misses"`
	NoteComparison NoteComparison `json:"note_comparison"`
	Feedback       string         `json:"feedback" validate:"required"`
	ImprovementTip string         `json:"improvement_tip"`
	NeedsFollowUp  bool           `json:"needs_follow_up"`
}

// Decision is the three-way outcome of a turn.
type Decision string

const (
	DecisionFollowUp     Decision = "FOLLOW_UP"
	DecisionNextQuestion Decision = "NEXT_QUESTION"
	DecisionEnd          Decision = "END"
)

// InterviewDecision is the turn outcome handed back to the caller.
// NextQuestion is present iff Decision != END. The interviewer-facing Message
// must never leak scores, hit/miss lists, or evaluation criteria.
type InterviewDecision struct {
	Decision     Decision  `json:"decision"`
	Message      string    `json:"message"`
	NextQuestion *Question `json:"nextQuestion,omitempty"`
}

// TurnType distinguishes main-question turns from follow-up turns for report
// weighting (main 0.7, follow-up 0.3).
type TurnType string

const (
	TurnMain     TurnType = "MAIN"
	TurnFollowUp TurnType = "FOLLOW_UP"
)

// Turn is one question-answer-evaluation cycle of the session history. The
// history is owned and threaded through by the caller; the core never retains
// it between calls.
type Turn struct {
	QuestionID     string         `json:"question_id"`
	Type           TurnType       `json:"type"`
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	Score          int            `json:"score"`
	SkillTarget    string         `json:"skill_target,omitempty"`
	Hits           []string       `json:"hits,omitempty"`
	Misses         []string       `json:"misses,omitempty"`
	NoteComparison NoteComparison `json:"note_comparison"`
	Feedback       string         `json:"feedback,omitempty"`
}

// ReportStrength quotes what the candidate actually answered well.
type ReportStrength struct {
	Skill    string `json:"skill"`
	Detail   string `json:"detail"`
	Evidence string `json:"evidence"`
}

// ReportImprovement is a gap with priority HIGH/MEDIUM/LOW and a concrete
// remediation suggestion.
type ReportImprovement struct {
	Skill      string `json:"skill"`
	Detail     string `json:"detail"`
	Priority   string `json:"priority"`
	Suggestion string `json:"suggestion"`
}

// KnowledgeGapSummary is the disjoint three-way rollup across all turns,
// derived strictly from per-turn note comparisons.
type KnowledgeGapSummary struct {
	StudiedAndStrong []string `json:"studied_and_strong"`
	StudiedButWeak   []string `json:"studied_but_weak"`
	NotStudied       []string `json:"not_studied"`
}

// NextStep is one ranked, actionable follow-up after the interview.
type NextStep struct {
	Priority   int    `json:"priority"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
	RelatedGap string `json:"related_gap"` // review or new_learning
}

// CommunicationQuality holds the 1-10 sub-scores used to adjust the overall
// score by up to +/-5 points.
type CommunicationQuality struct {
	Score          int    `json:"score" validate:"required,min=1,max=10"`
	Structure      string `json:"structure"`
	Terminology    string `json:"terminology"`
	Comprehension  string `json:"comprehension"`
	Conciseness    string `json:"conciseness"`
	OverallComment string `json:"overall_comment"`
}

// InterviewReport is the terminal Phase 3 aggregate.
type InterviewReport struct {
	OverallScore         int                  `json:"overall_score"`
	Grade                string               `json:"grade"`
	Strengths            []ReportStrength     `json:"strengths"`
	Improvements         []ReportImprovement  `json:"improvements"`
	KnowledgeGapSummary  KnowledgeGapSummary  `json:"knowledge_gap_summary"`
	NextSteps            []NextStep           `json:"next_steps"`
	CommunicationQuality CommunicationQuality `json:"communication_quality"`
}

// GradeFor maps a 0-100 score onto the fixed letter-grade buckets.
func GradeFor(score int) string {
	switch {
	case score >= 90:
		return "S"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// QuizQuestion is a four-option multiple-choice question grounded in the
// candidate's study notes.
type QuizQuestion struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,len=4"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
	Explanation   string   `json:"explanation"`
	Tag           string   `json:"tag"`
	Difficulty    string   `json:"difficulty"`
}

// QuizSet is a generated batch of quiz questions.
type QuizSet struct {
	Questions []QuizQuestion `json:"questions" validate:"required,min=1,dive"`
}

// QuizEvaluation is the graded outcome of one quiz answer.
type QuizEvaluation struct {
	IsCorrect       bool     `json:"is_correct"`
	Explanation     string   `json:"explanation" validate:"required"`
	StudyTip        string   `json:"study_tip"`
	RelatedConcepts []string `json:"related_concepts"`
}

// KnowledgeNote is the stored metadata of one embedded study note.
type KnowledgeNote struct {
	ID        string
	UserID    string
	Title     string
	Tags      []string
	Chunks    int
	CreatedAt time.Time
}

// AgentProfile is a named prompt template bound to the external tools it may
// invoke. Plain configuration record, not a behavior hierarchy.
type AgentProfile struct {
	Role      string
	Goal      string
	Backstory string
	Tools     []string
}

// Ports

// AIClient invokes the language model collaborator. Calls may fail
// transiently; the core does not retry reasoning failures (transport-level
// retries live in the adapter).
type AIClient interface {
	// ChatJSON returns raw model text expected to contain a JSON payload
	// matching the schema described in the prompt.
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
	// Embed returns embedding vectors for texts.
	Embed(ctx Context, texts []string) ([][]float32, error)
}

// KnowledgeSearcher queries the candidate's study notes by semantic
// similarity, scoped to a user. An empty result is a valid response meaning
// "nothing found" and must be distinguishable from a retrieval failure.
type KnowledgeSearcher interface {
	Search(ctx Context, query string, topK int, userID string) ([]KnowledgeHit, error)
}

// KnowledgeIndexer upserts embedded note chunks into the vector store.
type KnowledgeIndexer interface {
	Index(ctx Context, userID, noteID string, chunks []string, vectors [][]float32) error
}

// WebSearcher is the web-search tool collaborator.
type WebSearcher interface {
	Search(ctx Context, query string, limit int) ([]WebResult, error)
}

// WebResult is one web-search hit.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// NoteRepository persists knowledge-note metadata.
type NoteRepository interface {
	Create(ctx Context, n KnowledgeNote) (string, error)
	Get(ctx Context, id string) (KnowledgeNote, error)
	ListByUser(ctx Context, userID string) ([]KnowledgeNote, error)
}

// TextExtractor turns an uploaded resume document into plain text.
type TextExtractor interface {
	Extract(ctx Context, fileName string, content []byte) (string, error)
}

// Context is an alias so the domain package stays decoupled from transport
// concerns; adapters and usecases pass context.Context through.
type Context = context.Context
