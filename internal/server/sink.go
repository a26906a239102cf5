package server

import (
	"context"
	"sync"

	"github.com/coder/websocket"
)

// wsSink delivers synthesized audio to the browser as a binary frame and
// blocks until the client reports its audio element finished. The playback
// controller serializes Play calls, so at most one waiter exists at a time.
type wsSink struct {
	conn *websocket.Conn

	mu     sync.Mutex
	waiter chan struct{}
}

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn}
}

// Play sends audio and waits for the playback_done signal.
func (s *wsSink) Play(ctx context.Context, audio []byte) error {
	w := make(chan struct{})
	s.mu.Lock()
	s.waiter = w
	s.mu.Unlock()

	if err := s.conn.Write(ctx, websocket.MessageBinary, audio); err != nil {
		s.clear(w)
		return err
	}

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		s.clear(w)
		return ctx.Err()
	}
}

// playbackDone settles the outstanding Play, if any. A signal with no
// waiter is ignored.
func (s *wsSink) playbackDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiter != nil {
		close(s.waiter)
		s.waiter = nil
	}
}

func (s *wsSink) clear(w chan struct{}) {
	s.mu.Lock()
	if s.waiter == w {
		s.waiter = nil
	}
	s.mu.Unlock()
}
