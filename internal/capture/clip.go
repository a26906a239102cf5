package capture

import (
	"encoding/binary"
	"math"
	"time"
)

// Clip is a finished recording: mono float32 PCM at a known sample rate.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the recorded length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// PCM16 returns the clip as little-endian 16-bit PCM (LINEAR16), clamping
// out-of-range samples.
func (c *Clip) PCM16() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

// WAV returns the clip as a 16-bit mono RIFF/WAVE file.
func (c *Clip) WAV() []byte {
	pcm := c.PCM16()
	const headerSize = 44
	buf := make([]byte, headerSize+len(pcm))

	byteRate := c.SampleRate * 2
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(buf[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[headerSize:], pcm)
	return buf
}
