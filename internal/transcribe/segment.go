package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// SegmentTranscriber transcribes one audio segment. Satisfied by
// SegmentClient; tests substitute fakes.
type SegmentTranscriber interface {
	TranscribeSegment(ctx context.Context, wavData []byte, title string) (string, error)
}

// SegmentClient calls an AISHA-style STT endpoint: multipart audio upload,
// plain text result. Used for per-segment transcription after diarization.
type SegmentClient struct {
	url      string
	apiKey   string
	language string
	client   *http.Client
}

// segmentResponse is the JSON response from the segment STT API. Providers
// differ on the field name, so both are accepted.
type segmentResponse struct {
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
}

// NewSegmentClient creates a segment-mode STT client. The timeout bounds each
// individual transcription call.
func NewSegmentClient(url, apiKey, language string, timeout time.Duration) *SegmentClient {
	return &SegmentClient{
		url:      url,
		apiKey:   apiKey,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

// TranscribeSegment sends one WAV segment and returns its transcription.
func (sc *SegmentClient) TranscribeSegment(ctx context.Context, wavData []byte, title string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s.wav"`, title))
	hdr.Set("Content-Type", "audio/wav")
	part, err := w.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}

	w.WriteField("title", title)
	w.WriteField("has_diarization", "false")
	w.WriteField("language", sc.language)
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.url, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if sc.apiKey != "" {
		req.Header.Set("x-api-key", sc.apiKey)
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stt API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result segmentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := result.Text
	if text == "" {
		text = result.Transcript
	}
	return strings.TrimSpace(text), nil
}
