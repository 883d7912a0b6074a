package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// PrepareRunner runs interview preparation.
type PrepareRunner interface {
	Prepare(ctx context.Context, in usecase.PrepareInput) (domain.InterviewScenario, error)
}

// TurnRunner evaluates one interview turn.
type TurnRunner interface {
	Evaluate(ctx context.Context, in usecase.TurnInput) (domain.TurnEvaluation, domain.InterviewDecision, error)
}

// ReportRunner generates the final interview report.
type ReportRunner interface {
	Generate(ctx context.Context, in usecase.ReportInput) (domain.InterviewReport, error)
}

// QuizRunner generates and grades quizzes.
type QuizRunner interface {
	Generate(ctx context.Context, in usecase.QuizGenerateInput) (domain.QuizSet, error)
	EvaluateAnswer(ctx context.Context, in usecase.QuizEvaluateInput) (domain.QuizEvaluation, error)
}

// KnowledgeRunner stores and lists knowledge notes.
type KnowledgeRunner interface {
	Embed(ctx context.Context, in usecase.EmbedInput) (domain.KnowledgeNote, error)
	List(ctx context.Context, userID string) ([]domain.KnowledgeNote, error)
}

// ResumeParser turns an uploaded resume document into clean plain text.
type ResumeParser interface {
	Parse(ctx context.Context, in usecase.ResumeParseInput) (string, error)
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Prepare     PrepareRunner
	Turn        TurnRunner
	Report      ReportRunner
	Quiz        QuizRunner
	Knowledge   KnowledgeRunner
	Resume      ResumeParser
	DBCheck     func(ctx context.Context) error
	QdrantCheck func(ctx context.Context) error
	TikaCheck   func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, prepare PrepareRunner, turn TurnRunner, report ReportRunner, quiz QuizRunner, knowledge KnowledgeRunner, resume ResumeParser, dbCheck, qdrantCheck, tikaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Prepare: prepare, Turn: turn, Report: report, Quiz: quiz, Knowledge: knowledge, Resume: resume, DBCheck: dbCheck, QdrantCheck: qdrantCheck, TikaCheck: tikaCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

const maxBodyBytes = 2 << 20

// decodeJSON enforces the JSON-only contract: Accept negotiation, a body size
// cap, strict decoding, and validator tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
		writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
			Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
		}})
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err), nil)
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

type prepareRequest struct {
	UserID        string `json:"user_id" validate:"required,max=100"`
	ResumeText    string `json:"resume_text" validate:"required"`
	JDText        string `json:"jd_text" validate:"required"`
	QuestionCount int    `json:"question_count" validate:"required,min=1,max=20"`
	Difficulty    string `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD"`
}

// PrepareHandler runs interview preparation and returns the scenario.
func (s *Server) PrepareHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prepareRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if res := ValidateUserID(req.UserID); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid user_id", domain.ErrInvalidArgument), res.Errors)
			return
		}
		scenario, err := s.Prepare.Prepare(r.Context(), usecase.PrepareInput{
			UserID:        req.UserID,
			ResumeText:    textx.SanitizeText(req.ResumeText),
			JDText:        textx.SanitizeText(req.JDText),
			QuestionCount: req.QuestionCount,
			Difficulty:    domain.Difficulty(req.Difficulty),
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"scenario": scenario})
	}
}

type turnRequest struct {
	UserID         string                   `json:"user_id" validate:"required,max=100"`
	Scenario       domain.InterviewScenario `json:"scenario" validate:"required"`
	QuestionID     string                   `json:"question_id" validate:"required,max=100"`
	Answer         string                   `json:"answer"`
	FollowUpCount  int                      `json:"follow_up_count" validate:"min=0"`
	RemainingCount int                      `json:"remaining_count" validate:"min=0"`
	History        []domain.Turn            `json:"history"`
}

// TurnHandler evaluates one answer and returns the next interview action.
func (s *Server) TurnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req turnRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		eval, decision, err := s.Turn.Evaluate(r.Context(), usecase.TurnInput{
			UserID:         req.UserID,
			Scenario:       req.Scenario,
			QuestionID:     req.QuestionID,
			Answer:         textx.SanitizeText(req.Answer),
			FollowUpCount:  req.FollowUpCount,
			RemainingCount: req.RemainingCount,
			History:        req.History,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"evaluation":    eval,
			"decision":      decision.Decision,
			"message":       decision.Message,
			"next_question": decision.NextQuestion,
		})
	}
}

type reportRequest struct {
	Turns []domain.Turn         `json:"turns" validate:"required,min=1"`
	JD    domain.JobRequirement `json:"job_requirements"`
}

// ReportHandler generates the final interview report from the turn history.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reportRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		report, err := s.Report.Generate(r.Context(), usecase.ReportInput{Turns: req.Turns, JD: req.JD})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report": report})
	}
}

type quizGenerateRequest struct {
	UserID     string   `json:"user_id" validate:"required,max=100"`
	Tags       []string `json:"tags" validate:"required,min=1,dive,required"`
	Difficulty string   `json:"difficulty" validate:"omitempty,oneof=EASY MEDIUM HARD"`
	Count      int      `json:"count" validate:"required,min=1,max=20"`
}

// QuizGenerateHandler generates a quiz set from the user's study notes.
func (s *Server) QuizGenerateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizGenerateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		set, err := s.Quiz.Generate(r.Context(), usecase.QuizGenerateInput{
			UserID:     req.UserID,
			Tags:       req.Tags,
			Difficulty: req.Difficulty,
			Count:      req.Count,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}

type quizEvaluateRequest struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"omitempty,len=4"`
	CorrectAnswer string   `json:"correct_answer"`
	Answer        string   `json:"answer" validate:"required"`
}

// QuizEvaluateHandler grades one quiz answer.
func (s *Server) QuizEvaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizEvaluateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		eval, err := s.Quiz.EvaluateAnswer(r.Context(), usecase.QuizEvaluateInput{
			Question:      req.Question,
			Options:       req.Options,
			CorrectAnswer: req.CorrectAnswer,
			Answer:        textx.SanitizeText(req.Answer),
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, eval)
	}
}

type embedRequest struct {
	UserID   string   `json:"user_id" validate:"required,max=100"`
	Title    string   `json:"title" validate:"max=300"`
	Tags     []string `json:"tags" validate:"omitempty,dive,required"`
	Markdown string   `json:"markdown" validate:"required"`
}

// KnowledgeEmbedHandler stores one markdown study note.
func (s *Server) KnowledgeEmbedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if res := ValidateUserID(req.UserID); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid user_id", domain.ErrInvalidArgument), res.Errors)
			return
		}
		note, err := s.Knowledge.Embed(r.Context(), usecase.EmbedInput{
			UserID:   req.UserID,
			Title:    textx.SanitizeText(req.Title),
			Tags:     req.Tags,
			Markdown: textx.SanitizeText(req.Markdown),
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"note_id":    note.ID,
			"title":      note.Title,
			"tags":       note.Tags,
			"chunks":     note.Chunks,
			"created_at": note.CreatedAt,
		})
	}
}

// KnowledgeNotesHandler lists the metadata of a user's embedded notes.
func (s *Server) KnowledgeNotesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if res := ValidateUserID(userID); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid user_id", domain.ErrInvalidArgument), res.Errors)
			return
		}
		notes, err := s.Knowledge.List(r.Context(), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]any, 0, len(notes))
		for _, n := range notes {
			out = append(out, map[string]any{
				"note_id":    n.ID,
				"title":      n.Title,
				"tags":       n.Tags,
				"chunks":     n.Chunks,
				"created_at": n.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": out})
	}
}

const maxUploadBytes = 10 << 20

// ResumeParseHandler accepts a multipart resume upload (field "file") and
// returns the extracted, cleaned plain text.
func (s *Server) ResumeParseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
			writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
			}})
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_bytes": maxUploadBytes},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		defer func() { _ = file.Close() }()
		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		text, err := s.Resume.Parse(r.Context(), usecase.ResumeParseInput{
			FileName: header.Filename,
			Content:  content,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"parsed_text": text})
	}
}

// ReadyzHandler probes the database, the vector store, and the document
// extractor.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.QdrantCheck != nil {
			if err := s.QdrantCheck(ctx); err != nil {
				checks = append(checks, check{Name: "qdrant", Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "qdrant", OK: true})
			}
		}
		if s.TikaCheck != nil {
			if err := s.TikaCheck(ctx); err != nil {
				checks = append(checks, check{Name: "tika", Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "tika", OK: true})
			}
		}
		status := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				status = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, status, map[string]any{"checks": checks})
	}
}
