package capture

import (
	"context"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const defaultFramesPerBuffer = 1024 // ~64ms at 16kHz

// DefaultSource captures mono audio from the default input device via
// PortAudio.
type DefaultSource struct {
	sampleRate   int
	framesPerBuf int
}

// NewDefaultSource creates a source at the given sample rate.
func NewDefaultSource(sampleRate int) *DefaultSource {
	return &DefaultSource{sampleRate: sampleRate, framesPerBuf: defaultFramesPerBuffer}
}

// SampleRate returns the configured capture rate.
func (s *DefaultSource) SampleRate() int { return s.sampleRate }

// Open initializes PortAudio and starts a stream on the default input
// device. Each Open owns one Initialize/Terminate pair.
func (s *DefaultSource) Open(ctx context.Context) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	buf := make([]float32, s.framesPerBuf)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(s.sampleRate), s.framesPerBuf, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, err
	}
	return &portaudioStream{stream: stream, buf: buf}, nil
}

type portaudioStream struct {
	stream    *portaudio.Stream
	buf       []float32
	closeOnce sync.Once
	closeErr  error
}

func (p *portaudioStream) Read() ([]float32, error) {
	if err := p.stream.Read(); err != nil {
		return nil, err
	}
	return append([]float32(nil), p.buf...), nil
}

func (p *portaudioStream) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.stream.Stop()
		_ = p.stream.Close()
		_ = portaudio.Terminate()
	})
	return p.closeErr
}
