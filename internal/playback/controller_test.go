package playback

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSynth struct {
	audio []byte
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f.audio, f.err
}

// blockingSink holds Play until released.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	played  [][]byte
}

func newBlockingSink() *blockingSink {
	return &blockingSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *blockingSink) Play(ctx context.Context, audio []byte) error {
	s.played = append(s.played, audio)
	s.entered <- struct{}{}
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestControllerPlay(t *testing.T) {
	sink := newBlockingSink()
	close(sink.release)
	c := NewController(&fakeSynth{audio: []byte{1, 2, 3}}, sink)

	if err := c.Play(context.Background(), "hello"); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	if len(sink.played) != 1 || len(sink.played[0]) != 3 {
		t.Errorf("sink received %v, want one 3-byte clip", sink.played)
	}
}

func TestControllerRejectsConcurrentPlay(t *testing.T) {
	sink := newBlockingSink()
	c := NewController(&fakeSynth{audio: []byte{1}}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Play(ctx, "first") }()

	<-sink.entered
	if err := c.Play(ctx, "second"); !errors.Is(err, ErrConcurrentPlayback) {
		t.Errorf("second Play error = %v, want ErrConcurrentPlayback", err)
	}

	close(sink.release)
	if err := <-errCh; err != nil {
		t.Fatalf("first Play error: %v", err)
	}

	// The slot frees after completion.
	if err := c.Play(ctx, "third"); err != nil {
		t.Errorf("Play after completion error: %v", err)
	}
}

func TestControllerSynthesisFailure(t *testing.T) {
	sink := newBlockingSink()
	c := NewController(&fakeSynth{err: errors.New("api down")}, sink)

	if err := c.Play(context.Background(), "hello"); err == nil {
		t.Fatal("Play should fail when synthesis fails")
	}
	if len(sink.played) != 0 {
		t.Error("sink should not receive audio after synthesis failure")
	}

	// The failure releases the slot.
	done := make(chan error, 1)
	go func() { done <- c.Play(context.Background(), "again") }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Play should fail again, not block")
		}
	case <-time.After(time.Second):
		t.Fatal("Play blocked after a failed attempt")
	}
}

func TestControllerContextCancel(t *testing.T) {
	sink := newBlockingSink()
	c := NewController(&fakeSynth{audio: []byte{1}}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Play(ctx, "hello") }()

	<-sink.entered
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Play error = %v, want context.Canceled", err)
	}
}
