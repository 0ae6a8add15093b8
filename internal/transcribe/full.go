package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/snarg/callscribe/internal/transcript"
)

// FullClient calls an OpenAI-compatible /audio/transcriptions endpoint with
// verbose_json output, requesting word- and segment-level timestamps for the
// whole recording in one call.
type FullClient struct {
	url     string
	apiKey  string
	model   string
	prompt  string
	client  *http.Client
}

// FullResult is the normalized full-audio transcription. Tokens are
// word-level when the provider returned words, segment-level otherwise, and
// nil when the provider returned neither.
type FullResult struct {
	Text     string
	Language string
	Duration float64
	Tokens   []transcript.Token
}

// fullResponse is the verbose_json payload.
type fullResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewFullClient creates a full-audio STT client.
func NewFullClient(url, apiKey, model, prompt string, timeout time.Duration) *FullClient {
	return &FullClient{
		url:    url,
		apiKey: apiKey,
		model:  model,
		prompt: prompt,
		client: &http.Client{Timeout: timeout},
	}
}

// TranscribeFull sends the entire recording and returns text plus normalized
// timestamped tokens. language may be empty for provider auto-detection.
func (fc *FullClient) TranscribeFull(ctx context.Context, wavData []byte, language string) (*FullResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	if fc.model != "" {
		w.WriteField("model", fc.model)
	}
	if language != "" {
		w.WriteField("language", language)
	}
	if fc.prompt != "" {
		w.WriteField("prompt", fc.prompt)
	}
	w.WriteField("response_format", "verbose_json")
	w.WriteField("timestamp_granularities[]", "word")
	w.WriteField("timestamp_granularities[]", "segment")
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if fc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+fc.apiKey)
	}

	resp, err := fc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result fullResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &FullResult{
		Text:     strings.TrimSpace(result.Text),
		Language: result.Language,
		Duration: result.Duration,
		Tokens:   normalizeTokens(result),
	}, nil
}

// normalizeTokens converts provider words (preferred) or segments into the
// one canonical token shape alignment works on.
func normalizeTokens(r fullResponse) []transcript.Token {
	if len(r.Words) > 0 {
		tokens := make([]transcript.Token, len(r.Words))
		for i, w := range r.Words {
			tokens[i] = transcript.Token{Start: w.Start, End: w.End, Text: strings.TrimSpace(w.Word)}
		}
		return tokens
	}
	if len(r.Segments) > 0 {
		tokens := make([]transcript.Token, len(r.Segments))
		for i, s := range r.Segments {
			tokens[i] = transcript.Token{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)}
		}
		return tokens
	}
	return nil
}
