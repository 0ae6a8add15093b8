package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// SampleRate is the single PCM representation every input is normalized to:
// 16 kHz mono 16-bit, the format the STT providers expect.
const SampleRate = 16000

// Buffer holds decoded mono PCM samples.
type Buffer struct {
	Data []int // 16-bit samples
	Rate int
}

// Duration returns the audio length in seconds.
func (b *Buffer) Duration() float64 {
	if b.Rate == 0 {
		return 0
	}
	return float64(len(b.Data)) / float64(b.Rate)
}

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available in PATH. Call once at startup.
func CheckFFmpeg() bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath("ffmpeg")
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// Decode reads any container ffmpeg understands (mp3, wav, ogg, m4a) and
// returns normalized PCM. WAV input already in the target format is decoded
// directly; everything else goes through an ffmpeg conversion to a temp file.
func Decode(ctx context.Context, path string) (*Buffer, error) {
	if isTargetWav(path) {
		return decodeWav(path)
	}

	if !CheckFFmpeg() {
		return nil, fmt.Errorf("ffmpeg not found in PATH, cannot decode %s", filepath.Base(path))
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("callscribe-%s.wav", uuid.NewString()))
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", path,
		"-ac", "1", "-ar", fmt.Sprintf("%d", SampleRate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		tmp,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, string(out))
	}

	return decodeWav(tmp)
}

// isTargetWav returns true when path is a valid WAV already in the target
// format (16 kHz, mono, 16-bit PCM).
func isTargetWav(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return false
	}
	return dec.BitDepth == 16 && dec.NumChans == 1 && int(dec.SampleRate) == SampleRate
}

func decodeWav(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	return &Buffer{Data: buf.Data, Rate: buf.Format.SampleRate}, nil
}
