// Package transcription converts recorded answers to text with a single
// bounded retry for transient failures.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
	"github.com/instasitebuilder/code-mentor-platform/internal/trace"
)

// ErrTranscriptionFailed is the terminal failure after the bounded retry.
// The caller falls back to manual entry; it is never an unbounded loop.
var ErrTranscriptionFailed = errors.New("transcription: transcription failed")

// Retry bounds: exactly one retry after a short fixed delay.
const (
	DefaultRetryDelay = 2 * time.Second
	maxRetries        = 1
)

// Transcriber performs one recognition attempt.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *capture.Clip) (string, error)
}

// Pipeline wraps a transcriber with the retry policy.
type Pipeline struct {
	transcriber Transcriber
	retryDelay  time.Duration
}

// NewPipeline creates a pipeline. A non-positive delay uses the default.
func NewPipeline(t Transcriber, retryDelay time.Duration) *Pipeline {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Pipeline{transcriber: t, retryDelay: retryDelay}
}

// Transcribe returns the recognized text, retrying once on a transient
// failure. Terminal failures surface as ErrTranscriptionFailed.
func (p *Pipeline) Transcribe(ctx context.Context, clip *capture.Clip) (string, error) {
	log := trace.Logger(ctx)

	var text string
	attempt := 0
	op := func() error {
		attempt++
		var err error
		text, err = p.transcriber.Transcribe(ctx, clip)
		if err == nil {
			return nil
		}
		if !transient(err) {
			return backoff.Permanent(err)
		}
		log.Warn("transcription attempt failed", "attempt", attempt, "error", err)
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.retryDelay), maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(text), nil
}

// transient reports whether a failure is worth the one bounded retry.
func transient(err error) bool {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return true
		default:
			return false
		}
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= 500 || httpErr.Status == 429
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
