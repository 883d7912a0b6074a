package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// NoteRepo persists knowledge-note metadata using a minimal pgx pool. The
// note text itself lives in the vector store; this table records ownership
// and chunk counts so embedded notes remain auditable.
type NoteRepo struct{ Pool PgxPool }

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// NewNoteRepo constructs a NoteRepo with the given pool.
func NewNoteRepo(p PgxPool) *NoteRepo { return &NoteRepo{Pool: p} }

// EnsureSchema creates the notes table if it does not exist.
func (r *NoteRepo) EnsureSchema(ctx domain.Context) error {
	q := `CREATE TABLE IF NOT EXISTS knowledge_notes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		chunks INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := r.Pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("op=note.ensure_schema: %w", err)
	}
	return nil
}

// Create stores note metadata and returns its id (generates one if empty).
func (r *NoteRepo) Create(ctx domain.Context, n domain.KnowledgeNote) (string, error) {
	tracer := otel.Tracer("repo.notes")
	ctx, span := tracer.Start(ctx, "notes.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "knowledge_notes"),
	)
	id := n.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO knowledge_notes (id, user_id, title, tags, chunks, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.Pool.Exec(ctx, q, id, n.UserID, n.Title, n.Tags, n.Chunks, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=note.create: %w", err)
	}
	return id, nil
}

// Get loads note metadata by id.
func (r *NoteRepo) Get(ctx domain.Context, id string) (domain.KnowledgeNote, error) {
	tracer := otel.Tracer("repo.notes")
	ctx, span := tracer.Start(ctx, "notes.Get")
	defer span.End()
	q := `SELECT id, user_id, title, tags, chunks, created_at FROM knowledge_notes WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var n domain.KnowledgeNote
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Tags, &n.Chunks, &n.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.KnowledgeNote{}, fmt.Errorf("op=note.get: %w", domain.ErrNotFound)
		}
		return domain.KnowledgeNote{}, fmt.Errorf("op=note.get: %w", err)
	}
	return n, nil
}

// ListByUser returns all note metadata owned by a user, newest first.
func (r *NoteRepo) ListByUser(ctx domain.Context, userID string) ([]domain.KnowledgeNote, error) {
	tracer := otel.Tracer("repo.notes")
	ctx, span := tracer.Start(ctx, "notes.ListByUser")
	defer span.End()
	q := `SELECT id, user_id, title, tags, chunks, created_at FROM knowledge_notes WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=note.list: %w", err)
	}
	defer rows.Close()
	var notes []domain.KnowledgeNote
	for rows.Next() {
		var n domain.KnowledgeNote
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Tags, &n.Chunks, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=note.list: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=note.list: %w", err)
	}
	return notes, nil
}
