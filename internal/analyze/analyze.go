// Package analyze runs LLM conversation analysis over finished transcripts.
// It speaks the OpenAI chat-completions protocol, so any compatible endpoint
// works (OpenAI, local gateways).
package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/transcript"
)

const defaultModel = "gpt-4o-mini"

// Client analyzes diarized transcripts via an OpenAI-compatible API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates an analysis client. model may be empty.
func NewClient(baseURL, apiKey, model string, log zerolog.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     log.With().Str("component", "analyze").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `Generate a text analysis in Uzbek using the provided diarization JSON text.

1. Examine the provided JSON to understand the structure and contents: speaker segments, timestamps, and transcriptions.
2. Extract the relevant data and analyze the text, focusing on speaker interaction, themes, and linguistic features.
3. Provide a structured analysis in Uzbek that summarizes your findings, maintaining clarity and the integrity of the extracted information.`

// AnalyzeConversation sends the labeled transcript to the model and returns
// the structured analysis. The response is constrained to a strict JSON
// schema; if the model still returns invalid JSON, the raw text is wrapped
// as {"raw": "..."} rather than dropped.
func (c *Client) AnalyzeConversation(ctx context.Context, segments []transcript.Labeled) (json.RawMessage, error) {
	input, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(input)},
		},
		ResponseFormat: analysisSchema,
		Temperature:    1,
		MaxTokens:      8192,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis API returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("analysis API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("analysis API returned no choices")
	}

	content := parsed.Choices[0].Message.Content
	c.log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("content_len", len(content)).
		Msg("analysis complete")

	if !json.Valid([]byte(content)) {
		c.log.Warn().Msg("analysis content is not valid JSON, wrapping raw")
		wrapped, _ := json.Marshal(map[string]string{"raw": content})
		return wrapped, nil
	}
	return json.RawMessage(content), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
