package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type stubPrepare struct {
	scenario domain.InterviewScenario
	err      error
	got      usecase.PrepareInput
}

func (s *stubPrepare) Prepare(_ context.Context, in usecase.PrepareInput) (domain.InterviewScenario, error) {
	s.got = in
	return s.scenario, s.err
}

type stubTurn struct {
	eval     domain.TurnEvaluation
	decision domain.InterviewDecision
	err      error
}

func (s *stubTurn) Evaluate(_ context.Context, _ usecase.TurnInput) (domain.TurnEvaluation, domain.InterviewDecision, error) {
	return s.eval, s.decision, s.err
}

type stubReport struct {
	report domain.InterviewReport
	err    error
}

func (s *stubReport) Generate(_ context.Context, _ usecase.ReportInput) (domain.InterviewReport, error) {
	return s.report, s.err
}

type stubQuiz struct {
	set  domain.QuizSet
	eval domain.QuizEvaluation
	err  error
}

func (s *stubQuiz) Generate(_ context.Context, _ usecase.QuizGenerateInput) (domain.QuizSet, error) {
	return s.set, s.err
}

func (s *stubQuiz) EvaluateAnswer(_ context.Context, _ usecase.QuizEvaluateInput) (domain.QuizEvaluation, error) {
	return s.eval, s.err
}

type stubEmbedder struct {
	note  domain.KnowledgeNote
	notes []domain.KnowledgeNote
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, _ usecase.EmbedInput) (domain.KnowledgeNote, error) {
	return s.note, s.err
}

func (s *stubEmbedder) List(_ context.Context, _ string) ([]domain.KnowledgeNote, error) {
	return s.notes, s.err
}

type stubResume struct {
	text string
	err  error
	got  usecase.ResumeParseInput
}

func (s *stubResume) Parse(_ context.Context, in usecase.ResumeParseInput) (string, error) {
	s.got = in
	return s.text, s.err
}

func testServer(prepare PrepareRunner, turn TurnRunner, report ReportRunner, quiz QuizRunner, knowledge KnowledgeRunner) *Server {
	return NewServer(config.Config{AppEnv: "test"}, prepare, turn, report, quiz, knowledge, nil, nil, nil, nil)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPrepareHandler_Success(t *testing.T) {
	prepare := &stubPrepare{scenario: domain.InterviewScenario{
		TotalQuestions: 1,
		DifficultyBase: domain.DifficultyMedium,
		Questions:      []domain.Question{{ID: "q1", Text: "why?"}},
	}}
	srv := testServer(prepare, nil, nil, nil, nil)

	rec := postJSON(t, srv.PrepareHandler(), `{
		"user_id": "u1",
		"resume_text": "four years of Java",
		"jd_text": "senior backend engineer",
		"question_count": 1,
		"difficulty": "MEDIUM"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Scenario domain.InterviewScenario `json:"scenario"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Scenario.TotalQuestions)
	assert.Equal(t, "u1", prepare.got.UserID)
	assert.Equal(t, domain.DifficultyMedium, prepare.got.Difficulty)
}

func TestPrepareHandler_Validation(t *testing.T) {
	srv := testServer(&stubPrepare{}, nil, nil, nil, nil)
	cases := []struct {
		name string
		body string
	}{
		{"missing resume", `{"user_id": "u1", "jd_text": "jd", "question_count": 3, "difficulty": "EASY"}`},
		{"bad difficulty", `{"user_id": "u1", "resume_text": "r", "jd_text": "jd", "question_count": 3, "difficulty": "BRUTAL"}`},
		{"count above cap", `{"user_id": "u1", "resume_text": "r", "jd_text": "jd", "question_count": 21, "difficulty": "EASY"}`},
		{"bad user id", `{"user_id": "u 1!", "resume_text": "r", "jd_text": "jd", "question_count": 3, "difficulty": "EASY"}`},
		{"not json", `resume`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, srv.PrepareHandler(), tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
		})
	}
}

func TestPrepareHandler_NotAcceptable(t *testing.T) {
	srv := testServer(&stubPrepare{}, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.PrepareHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestTurnHandler_Success(t *testing.T) {
	next := &domain.Question{ID: "q2", Text: "next?"}
	turn := &stubTurn{
		eval: domain.TurnEvaluation{Score: 7, Feedback: "good"},
		decision: domain.InterviewDecision{
			Decision:     domain.DecisionNextQuestion,
			Message:      "let's move on",
			NextQuestion: next,
		},
	}
	srv := testServer(nil, turn, nil, nil, nil)

	rec := postJSON(t, srv.TurnHandler(), `{
		"user_id": "u1",
		"scenario": {"total_questions": 2, "questions": [
			{"id": "q1", "text": "why?"}, {"id": "q2", "text": "next?"}
		]},
		"question_id": "q1",
		"answer": "because",
		"remaining_count": 1,
		"history": []
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Evaluation   domain.TurnEvaluation `json:"evaluation"`
		Decision     string                `json:"decision"`
		Message      string                `json:"message"`
		NextQuestion *domain.Question      `json:"next_question"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Evaluation.Score)
	assert.Equal(t, "NEXT_QUESTION", resp.Decision)
	require.NotNil(t, resp.NextQuestion)
	assert.Equal(t, "q2", resp.NextQuestion.ID)
}

func TestTurnHandler_NegativeCounterRejected(t *testing.T) {
	srv := testServer(nil, &stubTurn{}, nil, nil, nil)
	rec := postJSON(t, srv.TurnHandler(), `{
		"user_id": "u1",
		"scenario": {"total_questions": 1, "questions": [{"id": "q1", "text": "why?"}]},
		"question_id": "q1",
		"remaining_count": -1
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnHandler_SchemaErrorMapsTo503(t *testing.T) {
	turn := &stubTurn{err: domain.ErrSchemaInvalid}
	srv := testServer(nil, turn, nil, nil, nil)
	rec := postJSON(t, srv.TurnHandler(), `{
		"user_id": "u1",
		"scenario": {"total_questions": 1, "questions": [{"id": "q1", "text": "why?"}]},
		"question_id": "q1",
		"remaining_count": 1
	}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SCHEMA_INVALID")
}

func TestReportHandler_Success(t *testing.T) {
	report := &stubReport{report: domain.InterviewReport{OverallScore: 65, Grade: "C"}}
	srv := testServer(nil, nil, report, nil, nil)
	rec := postJSON(t, srv.ReportHandler(), `{
		"turns": [{"question_id": "q1", "type": "MAIN", "question": "q?", "answer": "a", "score": 7}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"grade":"C"`)
}

func TestReportHandler_EmptyTurns(t *testing.T) {
	srv := testServer(nil, nil, &stubReport{}, nil, nil)
	rec := postJSON(t, srv.ReportHandler(), `{"turns": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuizGenerateHandler_Success(t *testing.T) {
	quiz := &stubQuiz{set: domain.QuizSet{Questions: []domain.QuizQuestion{
		{Question: "q?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a"},
	}}}
	srv := testServer(nil, nil, nil, quiz, nil)
	rec := postJSON(t, srv.QuizGenerateHandler(), `{
		"user_id": "u1", "tags": ["transactions"], "count": 1
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"correct_answer":"a"`)
}

func TestQuizGenerateHandler_NoNotesMapsTo404(t *testing.T) {
	quiz := &stubQuiz{err: domain.ErrNotFound}
	srv := testServer(nil, nil, nil, quiz, nil)
	rec := postJSON(t, srv.QuizGenerateHandler(), `{
		"user_id": "u1", "tags": ["transactions"], "count": 1
	}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuizEvaluateHandler_Success(t *testing.T) {
	quiz := &stubQuiz{eval: domain.QuizEvaluation{IsCorrect: true, Explanation: "right"}}
	srv := testServer(nil, nil, nil, quiz, nil)
	rec := postJSON(t, srv.QuizEvaluateHandler(), `{
		"question": "q?", "answer": "a"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_correct":true`)
}

func TestKnowledgeEmbedHandler_Success(t *testing.T) {
	embed := &stubEmbedder{note: domain.KnowledgeNote{ID: "note-1", UserID: "u1", Title: "Tx", Chunks: 2}}
	srv := testServer(nil, nil, nil, nil, embed)
	rec := postJSON(t, srv.KnowledgeEmbedHandler(), `{
		"user_id": "u1", "title": "Tx", "tags": ["database"], "markdown": "# Notes\n\nMVCC."
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"note_id":"note-1"`)
	assert.Contains(t, rec.Body.String(), `"chunks":2`)
}

func TestKnowledgeEmbedHandler_MissingBody(t *testing.T) {
	srv := testServer(nil, nil, nil, nil, &stubEmbedder{})
	rec := postJSON(t, srv.KnowledgeEmbedHandler(), `{"user_id": "u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKnowledgeNotesHandler_Success(t *testing.T) {
	knowledge := &stubEmbedder{notes: []domain.KnowledgeNote{
		{ID: "n1", UserID: "u1", Title: "Transactions", Chunks: 3},
		{ID: "n2", UserID: "u1", Title: "Indexes", Chunks: 1},
	}}
	srv := testServer(nil, nil, nil, nil, knowledge)

	rec := httptest.NewRecorder()
	srv.KnowledgeNotesHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?user_id=u1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Notes []struct {
			NoteID string `json:"note_id"`
			Title  string `json:"title"`
		} `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Notes, 2)
	assert.Equal(t, "n1", resp.Notes[0].NoteID)
	assert.Equal(t, "Transactions", resp.Notes[0].Title)
}

func TestKnowledgeNotesHandler_BadUserID(t *testing.T) {
	srv := testServer(nil, nil, nil, nil, &stubEmbedder{})
	for _, q := range []string{"/", "/?user_id=u%201!"} {
		rec := httptest.NewRecorder()
		srv.KnowledgeNotesHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
	}
}

func postMultipartFile(t *testing.T, h http.HandlerFunc, field, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestResumeParseHandler_Success(t *testing.T) {
	resume := &stubResume{text: "Jane Doe\nBackend Engineer"}
	srv := testServer(nil, nil, nil, nil, nil)
	srv.Resume = resume

	rec := postMultipartFile(t, srv.ResumeParseHandler(), "file", "resume.pdf", []byte("%PDF-1.4 fake"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"parsed_text":"Jane Doe\nBackend Engineer"`)
	assert.Equal(t, "resume.pdf", resume.got.FileName)
	assert.Equal(t, []byte("%PDF-1.4 fake"), resume.got.Content)
}

func TestResumeParseHandler_MissingFile(t *testing.T) {
	srv := testServer(nil, nil, nil, nil, nil)
	srv.Resume = &stubResume{}

	rec := postMultipartFile(t, srv.ResumeParseHandler(), "attachment", "resume.pdf", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file required")
}

func TestResumeParseHandler_RequiresMultipart(t *testing.T) {
	srv := testServer(nil, nil, nil, nil, nil)
	srv.Resume = &stubResume{}

	rec := postJSON(t, srv.ResumeParseHandler(), `{"file": "resume.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "multipart/form-data")
}

func TestResumeParseHandler_UnsupportedTypeMapsTo400(t *testing.T) {
	resume := &stubResume{err: domain.ErrInvalidArgument}
	srv := testServer(nil, nil, nil, nil, nil)
	srv.Resume = resume

	rec := postMultipartFile(t, srv.ResumeParseHandler(), "file", "photo.png", []byte("\x89PNG"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
}

func TestReadyzHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("down") }

	srv := testServer(nil, nil, nil, nil, nil)
	srv.DBCheck = ok
	srv.QdrantCheck = ok
	rec := httptest.NewRecorder()
	srv.ReadyzHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.QdrantCheck = fail
	rec = httptest.NewRecorder()
	srv.ReadyzHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")
}
