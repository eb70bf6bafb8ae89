package audio

import (
	"encoding/binary"
	"math"
)

// Gain boosts quiet microphone input before quantization.
const Gain = 2.0

// EncodeSample applies the gain, clamps to [-1, 1] and quantizes to int16.
// The second clamp keeps +1.0 (which scales to 32768) from wrapping around.
// NaN encodes as silence.
func EncodeSample(x float32) int16 {
	v := float64(x) * Gain
	if math.IsNaN(v) {
		return 0
	}
	v = clamp(v, -1, 1)
	v = clamp(math.Round(v*32768), math.MinInt16, math.MaxInt16)
	return int16(v)
}

// Encode converts a window of float samples into same-length int16 samples.
func Encode(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = EncodeSample(s)
	}
	return out
}

// EncodePCM16LE encodes samples to the little-endian PCM wire format sent
// over the transport.
func EncodePCM16LE(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(EncodeSample(s)))
	}
	return buf
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
