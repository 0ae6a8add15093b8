package transcript

// Segment is a diarization window: a speaker turn within a recording.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"` // seconds
	End     float64 `json:"end"`   // seconds
}

// Labeled is a diarization window with its transcribed text. Text is the
// empty string when transcription failed for the window, never omitted.
type Labeled struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Token is a timestamped unit of transcribed text, either a word or a
// sentence-level segment depending on what the STT provider returned.
// Provider output is normalized into this shape at the client boundary so
// alignment never branches on input shape.
type Token struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// UnknownSpeaker labels the synthetic segment used when no diarization is
// available.
const UnknownSpeaker = "SPEAKER_00"

// Window returns the segment's time range.
func (s Segment) Window() (float64, float64) { return s.Start, s.End }

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }
