package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/instasitebuilder/code-mentor-platform/internal/interview"
)

func readResult(t *testing.T, dir, sessionID string) sessionResult {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "session_"+sessionID+".json"))
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var r sessionResult
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	return r
}

func TestJSONStoreSave(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(dir)
	ctx := context.Background()

	if err := s.Save(ctx, "s1", "q1", "first answer"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Save(ctx, "s1", "q2", "second answer"); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	r := readResult(t, dir, "s1")
	if r.SessionID != "s1" {
		t.Errorf("SessionID = %q, want %q", r.SessionID, "s1")
	}
	if r.Responses["q1"] != "first answer" || r.Responses["q2"] != "second answer" {
		t.Errorf("Responses = %v", r.Responses)
	}
	if r.Status != string(interview.StatusNotStarted) {
		t.Errorf("Status = %q, want %q", r.Status, interview.StatusNotStarted)
	}
}

func TestJSONStoreSaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, "s1", "q1", "same answer"); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	r := readResult(t, dir, "s1")
	if len(r.Responses) != 1 || r.Responses["q1"] != "same answer" {
		t.Errorf("Responses = %v, want single q1 entry", r.Responses)
	}
}

func TestJSONStoreMarkStatus(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(dir)
	ctx := context.Background()

	if err := s.Save(ctx, "s1", "q1", "answer"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.MarkStatus(ctx, "s1", interview.StatusCompleted); err != nil {
		t.Fatalf("MarkStatus error: %v", err)
	}

	r := readResult(t, dir, "s1")
	if r.Status != string(interview.StatusCompleted) {
		t.Errorf("Status = %q, want %q", r.Status, interview.StatusCompleted)
	}
	if r.Responses["q1"] != "answer" {
		t.Errorf("Responses = %v, responses should survive status writes", r.Responses)
	}
}

func TestJSONStoreSeparateSessions(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(dir)
	ctx := context.Background()

	if err := s.Save(ctx, "s1", "q1", "one"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Save(ctx, "s2", "q1", "two"); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if got := readResult(t, dir, "s1").Responses["q1"]; got != "one" {
		t.Errorf("s1 q1 = %q, want %q", got, "one")
	}
	if got := readResult(t, dir, "s2").Responses["q1"]; got != "two" {
		t.Errorf("s2 q1 = %q, want %q", got, "two")
	}
}
