// Package capture owns the microphone device and enforces the
// single-recording invariant for a session.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/instasitebuilder/code-mentor-platform/internal/trace"
)

var (
	// ErrConcurrentCapture means a recording is already open. The manager
	// refuses a second capture rather than queuing it.
	ErrConcurrentCapture = errors.New("capture: recording already in progress")
	// ErrDeviceUnavailable means the input device could not be opened.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
)

// Stream delivers samples from an open device until closed.
type Stream interface {
	Read() ([]float32, error)
	Close() error
}

// Source opens the capture device.
type Source interface {
	Open(ctx context.Context) (Stream, error)
	SampleRate() int
}

// Manager starts and stops recordings, allowing at most one open Handle at
// a time.
type Manager struct {
	source Source

	mu     sync.Mutex
	active *Handle
}

// NewManager creates a manager over a device source.
func NewManager(source Source) *Manager {
	return &Manager{source: source}
}

// Start opens the device and begins recording. A second call while a
// recording is open fails with ErrConcurrentCapture; a denied or missing
// device fails with ErrDeviceUnavailable.
func (m *Manager) Start(ctx context.Context) (*Handle, error) {
	h := &Handle{mgr: m, done: make(chan struct{})}

	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, ErrConcurrentCapture
	}
	m.active = h
	m.mu.Unlock()

	stream, err := m.source.Open(ctx)
	if err != nil {
		m.release(h)
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	h.stream = stream
	h.sampleRate = m.source.SampleRate()
	go h.pump()

	trace.Logger(ctx).Debug("capture started", "sample_rate", h.sampleRate)
	return h, nil
}

// Stop ends a recording. See Handle.Stop.
func (m *Manager) Stop(h *Handle) (*Clip, error) {
	return h.Stop()
}

// Release force-closes any open recording, for session teardown.
func (m *Manager) Release() {
	m.mu.Lock()
	h := m.active
	m.mu.Unlock()
	if h != nil {
		_, _ = h.Stop()
	}
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	if m.active == h {
		m.active = nil
	}
	m.mu.Unlock()
}

// Handle wraps exactly one active recording.
type Handle struct {
	mgr        *Manager
	stream     Stream
	sampleRate int

	mu      sync.Mutex
	samples []float32

	done     chan struct{}
	stopOnce sync.Once
	clip     *Clip
}

// pump drains the stream until it errors, which is how a Close during Stop
// terminates it.
func (h *Handle) pump() {
	defer close(h.done)
	for {
		samples, err := h.stream.Read()
		if len(samples) > 0 {
			h.mu.Lock()
			h.samples = append(h.samples, samples...)
			h.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Stop ends the recording and returns the clip. Repeat calls return the
// same clip without touching the device again.
func (h *Handle) Stop() (*Clip, error) {
	h.stopOnce.Do(func() {
		_ = h.stream.Close()
		<-h.done
		h.mu.Lock()
		h.clip = &Clip{Samples: h.samples, SampleRate: h.sampleRate}
		h.mu.Unlock()
		h.mgr.release(h)
	})
	return h.clip, nil
}
