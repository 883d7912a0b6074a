package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// systemPrompt renders an agent profile into the system message.
func systemPrompt(a domain.AgentProfile) string {
	return fmt.Sprintf("Role: %s\n\nGoal: %s\n\n%s", a.Role, a.Goal, a.Backstory)
}

const jsonOnly = "CRITICAL: Respond with ONLY valid JSON. No explanations, reasoning, or markdown fences."

// clampText bounds text to the prompt token budget for the given model.
func clampText(text, model string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	return tokencount.ClampDefault(text, model, maxTokens)
}

func resumeAnalysisPrompt(resumeText string) string {
	tpl := `Analyze the candidate's resume and extract its core information in structured form.

Resume:
%s

Required steps:
1. Extract every programming language, framework, library, and tool. For each, judge the proficiency level: primary, secondary, or exposure. Expand abbreviations to official names (k8s -> Kubernetes).
2. Extract each project: name, duration, role, tech stack, concrete achievements, and team size when stated.
3. Compute total experience: junior (0-3y), mid (3-7y), senior (7y+). Extract per-skill usage periods when stated.

Do not invent anything the resume does not state.

Output JSON:
{
  "skills": [{"name": "...", "level": "primary|secondary|exposure", "usage_period": "..."}],
  "projects": [{"name": "...", "duration": "...", "role": "...", "tech_stack": ["..."], "achievements": ["..."], "team_size": "..."}],
  "experience_years": {"total": "...", "level": "junior|mid|senior", "by_skill": {"skill": "period"}}
}

%s`
	return fmt.Sprintf(tpl, resumeText, jsonOnly)
}

func resumeCleanupPrompt(rawText string) string {
	tpl := `Clean up the raw text extracted from a resume document.

Extracted text:
%s

Required steps:
1. Remove extraction artifacts: repeated page headers and footers, page numbers, and stray layout characters.
2. Rejoin sentences broken by mid-line wraps; restore section headings and bullet lists.
3. Keep every fact exactly as stated. Do not summarize, reword, reorder achievements, or add anything.

Output JSON:
{"parsed_text": "..."}

%s`
	return fmt.Sprintf(tpl, rawText, jsonOnly)
}

func jdAnalysisPrompt(jdText string) string {
	tpl := `Analyze the job description and structure its requirements.

Job description:
%s

Required steps:
1. Required skills: anything marked required, qualifications, or must-have. Split hard skills from soft skills and note the required level.
2. Preferred skills: anything marked preferred or nice-to-have. A skill appearing in both lists is required. When the classification is ambiguous, classify conservatively as required.
3. Expected level: experience range, position level (junior/mid/senior/lead), and any domain experience requirements.
4. Key interview keywords, ordered by importance, using the same official skill names a resume would use.

Do not invent requirements the job description does not state.

Output JSON:
{
  "required_skills": [{"name": "...", "type": "hard|soft", "required_level": "..."}],
  "preferred_skills": [{"name": "...", "type": "hard|soft"}],
  "expected_level": {"experience_range": "...", "position_level": "...", "domain_experience": ["..."]},
  "key_interview_keywords": ["..."]
}

%s`
	return fmt.Sprintf(tpl, jdText, jsonOnly)
}

func scenarioPrompt(profile domain.CandidateProfile, retrieval []domain.NoteSearchResult, dist domain.CategoryDistribution, count int, difficulty domain.Difficulty) string {
	profileJSON, _ := json.Marshal(profile)
	retrievalJSON, _ := json.Marshal(retrieval)
	tpl := `Design a realistic interview question scenario from the candidate profile below.

Candidate profile:
%s

Study-note retrieval per job keyword (no_result means the candidate has not studied it):
%s

Plan:
- Exactly %d main questions with ids q1..q%d, in the order they will be asked.
- Category counts are fixed: %d strength, %d weakness, %d behavioral.
- Base difficulty %s; difficulty generally increases over the sequence (EASY before MEDIUM before HARD).

Per question:
- category, skill_target, difficulty, question text.
- evaluation_criteria: concrete judgeable conditions an interviewer can apply immediately.
- Optionally ONE follow_up_guide with probe_direction and purpose. Never write follow-up question text; only directions for synthesizing it later.

Quality bar:
- 2-3 questions must reference the candidate's actual resume projects.
- Prefer experience-based questions over definition recitation.
- Each question covers an evaluation area no other question covers.
- Use the profile's skill_matrix question_depth to decide which skills get deep questions.

Output JSON:
{
  "scenario": {
    "total_questions": %d,
    "difficulty_base": "%s",
    "distribution": {"strength": %d, "weakness": %d, "behavioral": %d},
    "questions": [
      {
        "id": "q1",
        "category": "strength|weakness|behavioral",
        "skill_target": "...",
        "difficulty": "EASY|MEDIUM|HARD",
        "text": "...",
        "evaluation_criteria": ["..."],
        "follow_up_guide": {"probe_direction": "...", "purpose": "..."}
      }
    ]
  }
}

%s`
	return fmt.Sprintf(tpl, profileJSON, retrievalJSON,
		count, count, dist.Strength, dist.Weakness, dist.Behavioral, difficulty,
		count, difficulty, dist.Strength, dist.Weakness, dist.Behavioral, jsonOnly)
}

func evaluationPrompt(q domain.Question, answer string, notes []domain.KnowledgeHit, history []domain.Turn, window int, probeGuidance string) string {
	criteriaJSON, _ := json.Marshal(q.EvaluationCriteria)
	tpl := `Evaluate the candidate's interview answer.

Question: %s
Target skill: %s
Difficulty: %s
Answer: %s

Evaluation criteria:
%s

Candidate's own study notes retrieved for this topic (empty means nothing studied):
%s

Recent conversation:
%s

Required steps:
1. Extract the concepts, keywords, and experience claims from the answer. Judge each evaluation criterion as met or not. Flag technically incorrect statements.
2. Compare the answer against the study notes above. studied_but_missed: content present in the notes but absent from the answer. not_studied: content absent from the notes. Use ONLY the notes shown; if none are shown, every gap is not_studied.
3. Score 1-10: 1-3 unable or incorrect at the core; 4-5 basic understanding, no depth; 6-7 adequate understanding and explanation; 8-9 depth that shows real working experience; 10 an answer the interviewer could learn from. An empty or "I don't know" answer scores low on the evidence given, without extra penalty, and still gets respectful feedback.
4. feedback: name what was done well first, then what to improve, concretely. improvement_tip: a specific study direction for this topic.
5. needs_follow_up: %s

Short answers that hit the core are not penalized for brevity. If the conversation shows a prior partial answer to this question, evaluate them together.

Output JSON:
{
  "score": 7,
  "hits": ["..."],
  "misses": ["..."],
  "note_comparison": {"studied_but_missed": ["..."], "not_studied": ["..."]},
  "feedback": "...",
  "improvement_tip": "...",
  "needs_follow_up": true
}

%s`
	return fmt.Sprintf(tpl, q.Text, q.SkillTarget, q.Difficulty, answer,
		criteriaJSON, formatNotes(notes), formatConversationLog(history, window),
		probeGuidance, jsonOnly)
}

// interviewerPrompt asks only for the message (and, on FOLLOW_UP, the probe
// question text). The decision itself is already made in code and is not the
// model's to change.
func interviewerPrompt(decision domain.Decision, q domain.Question, answer string, history []domain.Turn, window int) string {
	switch decision {
	case domain.DecisionFollowUp:
		guideJSON, _ := json.Marshal(q.FollowUpGuide)
		tpl := `The interview continues with one follow-up probe on the current question.

Current question: %s
Candidate's answer: %s
Follow-up guide (probe directions and purpose; there is no pre-written follow-up text):
%s

Recent conversation:
%s

Synthesize the follow-up:
1. Identify the keywords, technologies, and experience the candidate actually mentioned.
2. Pick the probe direction most related to their answer.
3. Combine their context with that direction into one natural question. Example: probe direction "cache invalidation strategy, TTL policy" + answer mentioning Ehcache -> "How did you handle cache invalidation in Ehcache?". Stay inside the guide's purpose.

Also write the interviewer's connecting message: reference what the candidate said, keep the conversation's tone, never expose scores, hit/miss lists, or evaluation criteria, and never use canned transitions.

Output JSON:
{"message": "...", "follow_up_text": "..."}

%s`
		return fmt.Sprintf(tpl, q.Text, answer, guideJSON, formatConversationLog(history, window), jsonOnly)
	case domain.DecisionEnd:
		tpl := `The interview is over; every main question has been asked.

Last question: %s
Candidate's last answer: %s

Recent conversation:
%s

Write a natural closing message from the interviewer: thank the candidate, reference something they actually said, and close warmly. Never expose scores, hit/miss lists, or evaluation criteria.

Output JSON:
{"message": "..."}

%s`
		return fmt.Sprintf(tpl, q.Text, answer, formatConversationLog(history, window), jsonOnly)
	default: // NEXT_QUESTION
		tpl := `The interview moves on to the next main question.

Question just answered: %s
Candidate's answer: %s

Recent conversation:
%s

Write the interviewer's transition message: acknowledge the answer by referencing something the candidate actually said, then hand over to the next topic naturally. For an "I don't know" answer, respond respectfully ("that's all right, let's move on"). Never expose scores, hit/miss lists, or evaluation criteria, and never use canned transitions like "next question" or "well answered". Do not include the next question's text; it is delivered separately.

Output JSON:
{"message": "..."}

%s`
		return fmt.Sprintf(tpl, q.Text, answer, formatConversationLog(history, window), jsonOnly)
	}
}

func reportPrompt(turns []domain.Turn, jd domain.JobRequirement, baseScore int, gaps domain.KnowledgeGapSummary) string {
	evalJSON, _ := json.MarshalIndent(turns, "", "  ")
	jdJSON, _ := json.Marshal(jd)
	gapsJSON, _ := json.Marshal(gaps)
	tpl := `Write the final interview report from the transcript and per-turn evaluation data below.

Transcript:
%s

Per-turn evaluations:
%s

Job requirements:
%s

The weighted base score (main turns 0.7, follow-up turns 0.3, scaled to 0-100) is already computed: %d. The knowledge-gap rollup is already computed from the per-turn note comparisons: %s. Do not recompute either; build the qualitative sections around them.

Required steps:
1. Strengths: turns scoring 7 or higher. Quote what the candidate actually answered (evidence) and tie each strength to a job requirement.
2. Improvements: turns scoring 5 or lower, built from their misses. Priority HIGH when the skill is a required skill, MEDIUM when preferred, LOW otherwise. Each with a concrete remediation suggestion.
3. Next steps: at most 5, ranked by the same priority order. Each must be actionable - name a concrete technique, exercise, or artifact, never "study X more". Tag related_gap "review" for studied-but-weak topics and "new_learning" for not-studied topics.
4. Communication quality: judge structure, terminology accuracy, comprehension of question intent, and conciseness across the whole transcript, each with a short justification, plus one overall 1-10 score and comment.

Base every statement on the actual transcript and evaluations. Be honest about low scores, but constructive; the reader must know exactly what to do next.

Output JSON:
{
  "strengths": [{"skill": "...", "detail": "...", "evidence": "..."}],
  "improvements": [{"skill": "...", "detail": "...", "priority": "HIGH|MEDIUM|LOW", "suggestion": "..."}],
  "next_steps": [{"priority": 1, "action": "...", "reason": "...", "related_gap": "review|new_learning"}],
  "communication_quality": {"score": 7, "structure": "...", "terminology": "...", "comprehension": "...", "conciseness": "...", "overall_comment": "..."}
}

%s`
	return fmt.Sprintf(tpl, formatTranscript(turns), evalJSON, jdJSON, baseScore, gapsJSON, jsonOnly)
}

func quizGeneratePrompt(tags []string, difficulty string, count int, notes map[string][]domain.KnowledgeHit, webContext map[string][]domain.WebResult) string {
	tagsJSON, _ := json.Marshal(tags)
	var b strings.Builder
	for tag, hits := range notes {
		fmt.Fprintf(&b, "## %s\n%s\n", tag, formatNotes(hits))
	}
	for tag, results := range webContext {
		fmt.Fprintf(&b, "## %s (web fallback - candidate has no notes on this tag)\n", tag)
		for _, r := range results {
			fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Content)
		}
	}
	tpl := `Generate %d four-option multiple-choice quiz questions.

Tags: %s
Difficulty: %s

Source material per tag (questions must stay inside this material):
%s

Design rules:
- EASY tests definitions, terminology, and basic behavior. MEDIUM tests comparisons between concepts and applicability conditions. HARD tests practical scenarios, troubleshooting, and optimization judgment.
- All four options must be plausible; wrong options come from commonly confused or partially correct ideas. Keep option length and form uniform. Never use "all of the above" or "none of the above".
- correct_answer must match one options entry exactly, character for character.
- explanation states why the right answer is right and briefly why each wrong option is wrong.
- Spread questions evenly across tags; no two questions test the same concept from the same angle. Set tag and difficulty on every question.

Output JSON:
{
  "questions": [
    {"question": "...", "options": ["...", "...", "...", "..."], "correct_answer": "...", "explanation": "...", "tag": "...", "difficulty": "..."}
  ]
}

%s`
	return fmt.Sprintf(tpl, count, tagsJSON, difficulty, b.String(), jsonOnly)
}

func quizEvaluatePrompt(question, answer string, options []string, correctAnswer string) string {
	optionsJSON, _ := json.Marshal(options)
	tpl := `Grade the quiz answer and write study feedback.

Question: %s
Options: %s
Correct answer: %s
Candidate's answer: %s

Required steps:
1. Judge correctness; accept a paraphrase that clearly names the correct option.
2. explanation: if correct, why it is correct plus one related deeper concept; if wrong, why the chosen answer is wrong, contrasted with the correct one. Mention the commonly confused point if there is one.
3. study_tip: one concrete action ("draw a comparison table of HashMap vs ConcurrentHashMap synchronization"), never "study X more".
4. related_concepts: 2-4 concepts worth reviewing together with this one.

Grade strictly; write the feedback in an encouraging tone.

Output JSON:
{"is_correct": true, "explanation": "...", "study_tip": "...", "related_concepts": ["..."]}

%s`
	return fmt.Sprintf(tpl, question, optionsJSON, correctAnswer, answer, jsonOnly)
}

// formatConversationLog renders the most recent window turns for prompt
// injection.
func formatConversationLog(history []domain.Turn, window int) string {
	if len(history) == 0 {
		return "(no prior turns)"
	}
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	lines := make([]string, 0, len(history))
	for _, t := range history {
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s\n[Score: %d]", t.Question, t.Answer, t.Score))
	}
	return strings.Join(lines, "\n---\n")
}

// formatTranscript renders the full history for the report prompt.
func formatTranscript(turns []domain.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		fmt.Fprintf(&b, "== Turn %d ==\n", i+1)
		fmt.Fprintf(&b, "Question [%s]: %s\n", t.Type, t.Question)
		fmt.Fprintf(&b, "Answer: %s\n", t.Answer)
		if t.Feedback != "" {
			fmt.Fprintf(&b, "Feedback: %s\n", t.Feedback)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatNotes(hits []domain.KnowledgeHit) string {
	if len(hits) == 0 {
		return "(no study notes found)"
	}
	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		lines = append(lines, "- "+h.Content)
	}
	return strings.Join(lines, "\n")
}
