// Package store provides durable question and response storage.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/instasitebuilder/code-mentor-platform/internal/interview"
)

const connectTimeout = 15 * time.Second

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS interviews (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		company_name TEXT NOT NULL,
		position TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS interview_questions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		interview_id UUID NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		ordinal INTEGER NOT NULL,
		question TEXT NOT NULL,
		UNIQUE (interview_id, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS interview_sessions (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'not_started',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS interview_responses (
		session_id UUID NOT NULL,
		question_id UUID NOT NULL,
		response TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (session_id, question_id)
	)`,
}

// Postgres implements interview.QuestionBank and interview.ResponseStore on
// a pgx connection pool. Writes are idempotent upserts.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, pings, and migrates.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, stmt := range migrationStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migration: %w", err)
		}
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.pool.Close() }

// Fetch loads the interview's details and ordered questions, resolving
// template placeholders so the core never sees them.
func (p *Postgres) Fetch(ctx context.Context, interviewID string) (*interview.Script, error) {
	var details interview.Details
	row := p.pool.QueryRow(ctx,
		`SELECT company_name, position FROM interviews WHERE id = $1`, interviewID)
	if err := row.Scan(&details.Company, &details.Position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: interview %s not found", interview.ErrLoadFailed, interviewID)
		}
		return nil, fmt.Errorf("%w: %v", interview.ErrLoadFailed, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, question, ordinal FROM interview_questions
		 WHERE interview_id = $1 ORDER BY ordinal ASC`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interview.ErrLoadFailed, err)
	}
	defer rows.Close()

	var questions []interview.Question
	for rows.Next() {
		var q interview.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Ordinal); err != nil {
			return nil, fmt.Errorf("%w: %v", interview.ErrLoadFailed, err)
		}
		q.Text = resolvePlaceholders(q.Text, details)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", interview.ErrLoadFailed, err)
	}
	return &interview.Script{Details: details, Questions: questions}, nil
}

// Save upserts one response; repeating a save with the same arguments is a
// no-op at the row level.
func (p *Postgres) Save(ctx context.Context, sessionID, questionID, text string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO interview_responses (session_id, question_id, response, recorded_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (session_id, question_id)
		 DO UPDATE SET response = EXCLUDED.response, recorded_at = EXCLUDED.recorded_at`,
		sessionID, questionID, text)
	return err
}

// MarkStatus upserts the session's terminal status.
func (p *Postgres) MarkStatus(ctx context.Context, sessionID string, status interview.Status) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO interview_sessions (id, status, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`,
		sessionID, string(status))
	return err
}
