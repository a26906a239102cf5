// Package playback turns question text into audio the candidate hears.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/instasitebuilder/code-mentor-platform/internal/trace"
)

// ErrConcurrentPlayback means a play call is already outstanding. Correct
// callers never trigger this; the second call is rejected, not queued.
var ErrConcurrentPlayback = errors.New("playback: playback already in progress")

// Synthesizer renders text to a playable audio clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Sink delivers audio to the listener and blocks until playback finishes.
// Completion is an external signal: the listening client reports when its
// audio element ends.
type Sink interface {
	Play(ctx context.Context, audio []byte) error
}

// Controller sequences synthesis and playback, one voice at a time.
type Controller struct {
	synth Synthesizer
	sink  Sink
	busy  atomic.Bool
}

// NewController creates a controller over a synthesizer and sink.
func NewController(synth Synthesizer, sink Sink) *Controller {
	return &Controller{synth: synth, sink: sink}
}

// Play synthesizes text and blocks until the sink reports playback done.
// A second call while one is outstanding fails with ErrConcurrentPlayback.
func (c *Controller) Play(ctx context.Context, text string) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrConcurrentPlayback
	}
	defer c.busy.Store(false)

	ctx, span := trace.StartSpan(ctx, "voice_play")
	defer span.End()
	span.SetAttr("chars", len(text))

	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		span.SetAttr("error", err.Error())
		return fmt.Errorf("synthesize: %w", err)
	}
	span.SetAttr("audio_bytes", len(audio))

	if err := c.sink.Play(ctx, audio); err != nil {
		span.SetAttr("error", err.Error())
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
