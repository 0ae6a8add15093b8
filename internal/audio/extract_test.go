package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/snarg/callscribe/internal/transcript"
)

// rampBuffer returns n samples 0,1,2,... at the given rate.
func rampBuffer(n, rate int) *Buffer {
	data := make([]int, n)
	for i := range data {
		data[i] = i
	}
	return &Buffer{Data: data, Rate: rate}
}

// wavSamples decodes the PCM payload of a WAV image produced by EncodeWAV.
func wavSamples(t *testing.T, b []byte) []int {
	t.Helper()
	if len(b) < 44 {
		t.Fatalf("wav image too short: %d bytes", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatalf("not a RIFF/WAVE image")
	}
	pcm := b[44:]
	out := make([]int, len(pcm)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

func TestExtractAbuttingWindowsNoLossNoDup(t *testing.T) {
	buf := rampBuffer(16000*3, 16000) // 3 seconds

	windows := []transcript.Segment{
		{Speaker: "A", Start: 0, End: 1.5},
		{Speaker: "B", Start: 1.5, End: 3},
	}
	out := Extract(buf, windows)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}

	s1 := wavSamples(t, out[0])
	s2 := wavSamples(t, out[1])

	if len(s1)+len(s2) != len(buf.Data) {
		t.Errorf("total samples = %d, want %d", len(s1)+len(s2), len(buf.Data))
	}
	// First window ends exactly where the second begins.
	if s1[len(s1)-1]+1 != s2[0] {
		t.Errorf("boundary samples %d,%d not contiguous", s1[len(s1)-1], s2[0])
	}
}

func TestExtractClampsOutOfRange(t *testing.T) {
	buf := rampBuffer(16000, 16000) // 1 second

	windows := []transcript.Segment{
		{Speaker: "A", Start: 0.5, End: 9.0},  // end beyond audio
		{Speaker: "B", Start: 2.0, End: 3.0},  // entirely beyond audio
		{Speaker: "C", Start: 0.8, End: 0.2},  // start >= end
	}
	out := Extract(buf, windows)

	s0 := wavSamples(t, out[0])
	if len(s0) != 8000 {
		t.Errorf("clamped window samples = %d, want 8000", len(s0))
	}
	if len(wavSamples(t, out[1])) != 0 {
		t.Errorf("fully out-of-range window should be empty")
	}
	if len(wavSamples(t, out[2])) != 0 {
		t.Errorf("inverted window should be empty")
	}
}

func TestExtractMillisecondRounding(t *testing.T) {
	buf := rampBuffer(16000, 16000)

	// 0.0314159s floors to 31ms → sample 496 at 16kHz.
	w := []transcript.Segment{{Speaker: "A", Start: 0.0314159, End: 1.0}}
	s := wavSamples(t, Extract(buf, w)[0])
	if s[0] != 496 {
		t.Errorf("first sample = %d, want 496", s[0])
	}
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	samples := []int{0, 100, -100, 32767, -32768}
	img := EncodeWAV(samples, SampleRate)

	// The image must be independently decodable by the wav decoder used for
	// real input.
	path := filepath.Join(t.TempDir(), "rt.wav")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatal(err)
	}
	buf, err := decodeWav(path)
	if err != nil {
		t.Fatalf("decodeWav: %v", err)
	}
	if buf.Rate != SampleRate {
		t.Errorf("rate = %d, want %d", buf.Rate, SampleRate)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("len = %d, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != s {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}

func TestBufferDuration(t *testing.T) {
	b := rampBuffer(8000, 16000)
	if d := b.Duration(); d != 0.5 {
		t.Errorf("Duration = %v, want 0.5", d)
	}
	empty := &Buffer{}
	if d := empty.Duration(); d != 0 {
		t.Errorf("Duration of empty = %v, want 0", d)
	}
}
