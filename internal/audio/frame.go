package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// DefaultFrameSize is the number of mono samples in one capture window.
const DefaultFrameSize = 1024

// Frame is one window of mono float32 samples as produced by capture.
type Frame struct {
	Samples    []float32
	SampleRate int
	Timestamp  time.Time
}

// Duration returns the wall-clock length of the window.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// DecodeFloat32LE converts little-endian IEEE-754 bytes (pw-record --format f32)
// into samples. len(data) must be a multiple of 4.
func DecodeFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("float32 buffer length %d not aligned to 4 bytes", len(data))
	}
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}
