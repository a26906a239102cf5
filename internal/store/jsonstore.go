package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/instasitebuilder/code-mentor-platform/internal/interview"
)

// JSONStore persists each session as one JSON document on disk, for local
// runs without a database. Saves and status marks rewrite the document, so
// repeated calls with the same arguments converge on the same file.
type JSONStore struct {
	dir string

	mu      sync.Mutex
	results map[string]*sessionResult
}

type sessionResult struct {
	SessionID string            `json:"session_id"`
	Status    string            `json:"status"`
	Responses map[string]string `json:"responses"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewJSONStore creates a store writing under dir.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir, results: make(map[string]*sessionResult)}
}

// Save records one response and rewrites the session document.
func (s *JSONStore) Save(ctx context.Context, sessionID, questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.result(sessionID)
	r.Responses[questionID] = text
	return s.write(r)
}

// MarkStatus records the session status and rewrites the document.
func (s *JSONStore) MarkStatus(ctx context.Context, sessionID string, status interview.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.result(sessionID)
	r.Status = string(status)
	return s.write(r)
}

func (s *JSONStore) result(sessionID string) *sessionResult {
	r, ok := s.results[sessionID]
	if !ok {
		r = &sessionResult{
			SessionID: sessionID,
			Status:    string(interview.StatusNotStarted),
			Responses: make(map[string]string),
		}
		s.results[sessionID] = r
	}
	return r
}

func (s *JSONStore) write(r *sessionResult) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	r.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("session_%s.json", r.SessionID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result %s: %w", path, err)
	}
	return nil
}
