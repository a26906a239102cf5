package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
)

// scriptedTranscriber fails with queued errors before succeeding.
type scriptedTranscriber struct {
	errs  []error
	calls int
	text  string
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, clip *capture.Clip) (string, error) {
	n := s.calls
	s.calls++
	if n < len(s.errs) {
		return "", s.errs[n]
	}
	return s.text, nil
}

func testClip() *capture.Clip {
	return &capture.Clip{Samples: make([]float32, 160), SampleRate: 16000}
}

func TestPipelineSuccess(t *testing.T) {
	inner := &scriptedTranscriber{text: "  hello world  "}
	p := NewPipeline(inner, time.Millisecond)

	text, err := p.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want trimmed %q", text, "hello world")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestPipelineRetriesTransientOnce(t *testing.T) {
	inner := &scriptedTranscriber{
		errs: []error{status.Error(codes.Unavailable, "try again")},
		text: "recovered",
	}
	p := NewPipeline(inner, time.Millisecond)

	text, err := p.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "recovered" {
		t.Errorf("text = %q, want %q", text, "recovered")
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestPipelineRetryIsBounded(t *testing.T) {
	inner := &scriptedTranscriber{
		errs: []error{
			status.Error(codes.Unavailable, "down"),
			status.Error(codes.Unavailable, "still down"),
			status.Error(codes.Unavailable, "never reached"),
		},
	}
	p := NewPipeline(inner, time.Millisecond)

	_, err := p.Transcribe(context.Background(), testClip())
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("error = %v, want ErrTranscriptionFailed", err)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2 (one attempt + one retry)", inner.calls)
	}
}

func TestPipelinePermanentFailureNoRetry(t *testing.T) {
	inner := &scriptedTranscriber{
		errs: []error{status.Error(codes.InvalidArgument, "bad audio")},
	}
	p := NewPipeline(inner, time.Millisecond)

	_, err := p.Transcribe(context.Background(), testClip())
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("error = %v, want ErrTranscriptionFailed", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent failure)", inner.calls)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "x"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "x"), true},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "x"), true},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "x"), false},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "x"), false},
		{"http 500", &HTTPError{Status: 500, Body: "oops"}, true},
		{"http 429", &HTTPError{Status: 429, Body: "slow down"}, true},
		{"http 401", &HTTPError{Status: 401, Body: "bad key"}, false},
		{"http 400", &HTTPError{Status: 400, Body: "bad request"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transient(tt.err); got != tt.want {
				t.Errorf("transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
