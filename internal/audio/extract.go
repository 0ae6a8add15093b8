package audio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/snarg/callscribe/internal/transcript"
)

// Extract cuts one self-contained WAV buffer per diarization window, in
// window order. Out-of-range windows clamp to the available audio, so
// diarization timestamps that overshoot the end of the recording (rounding
// at the tail is common) never fail the pipeline.
func Extract(buf *Buffer, windows []transcript.Segment) [][]byte {
	out := make([][]byte, len(windows))
	for i, w := range windows {
		lo := sampleIndex(w.Start, buf.Rate)
		hi := sampleIndex(w.End, buf.Rate)

		if lo < 0 {
			lo = 0
		}
		if hi > len(buf.Data) {
			hi = len(buf.Data)
		}
		if lo > hi {
			lo = hi
		}
		out[i] = EncodeWAV(buf.Data[lo:hi], buf.Rate)
	}
	return out
}

// sampleIndex converts a time in seconds to a sample offset. Seconds are
// floored to whole milliseconds first so that abutting windows map to the
// same cut point from both sides.
func sampleIndex(sec float64, rate int) int {
	ms := int(math.Floor(sec * 1000))
	return ms * rate / 1000
}

// EncodeWAV wraps mono 16-bit samples in a RIFF header, producing an
// independently decodable WAV file image.
func EncodeWAV(samples []int, rate int) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(samples)*2)

	hdr := NewWAVHeader(uint32(len(samples)*2), uint32(rate))
	hdr.Write(&buf)

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	buf.Write(pcm)

	return buf.Bytes()
}
