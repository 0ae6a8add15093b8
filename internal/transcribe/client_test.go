package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSegmentClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.Header.Get("x-api-key"); got != "key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.FormValue("language"); got != "uz" {
			t.Errorf("language = %q, want uz", got)
		}
		if got := r.FormValue("title"); got != "segment_3" {
			t.Errorf("title = %q, want segment_3", got)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("audio field: %v", err)
		}
		f.Close()
		if hdr.Filename != "segment_3.wav" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": " salom "})
	}))
	defer srv.Close()

	c := NewSegmentClient(srv.URL, "key", "uz", 5*time.Second)
	text, err := c.TranscribeSegment(context.Background(), []byte("RIFF"), "segment_3")
	if err != nil {
		t.Fatalf("TranscribeSegment: %v", err)
	}
	if text != "salom" {
		t.Errorf("text = %q, want salom", text)
	}
}

func TestSegmentClientTranscriptField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"transcript": "hello"})
	}))
	defer srv.Close()

	c := NewSegmentClient(srv.URL, "", "uz", 5*time.Second)
	text, err := c.TranscribeSegment(context.Background(), []byte("x"), "segment_0")
	if err != nil {
		t.Fatalf("TranscribeSegment: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
}

func TestSegmentClientNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewSegmentClient(srv.URL, "", "uz", 5*time.Second)
	if _, err := c.TranscribeSegment(context.Background(), []byte("x"), "segment_0"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestFullClientPrefersWords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"text":     "hi there",
			"language": "en",
			"duration": 2.0,
			"words": []map[string]any{
				{"word": "hi", "start": 0.0, "end": 0.5},
				{"word": "there", "start": 0.5, "end": 1.0},
			},
			"segments": []map[string]any{
				{"start": 0.0, "end": 1.0, "text": "hi there"},
			},
		})
	}))
	defer srv.Close()

	c := NewFullClient(srv.URL, "key", "whisper-1", "", 5*time.Second)
	res, err := c.TranscribeFull(context.Background(), []byte("x"), "en")
	if err != nil {
		t.Fatalf("TranscribeFull: %v", err)
	}
	if len(res.Tokens) != 2 {
		t.Fatalf("tokens = %d, want 2 (word-level preferred)", len(res.Tokens))
	}
	if res.Tokens[1].Text != "there" || res.Tokens[1].Start != 0.5 {
		t.Errorf("token[1] = %+v", res.Tokens[1])
	}
}

func TestFullClientSegmentFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"text": "hi there",
			"segments": []map[string]any{
				{"start": 0.0, "end": 1.0, "text": " hi there "},
			},
		})
	}))
	defer srv.Close()

	c := NewFullClient(srv.URL, "", "whisper-1", "", 5*time.Second)
	res, err := c.TranscribeFull(context.Background(), []byte("x"), "")
	if err != nil {
		t.Fatalf("TranscribeFull: %v", err)
	}
	if len(res.Tokens) != 1 {
		t.Fatalf("tokens = %d, want 1", len(res.Tokens))
	}
	if res.Tokens[0].Text != "hi there" {
		t.Errorf("token text = %q", res.Tokens[0].Text)
	}
}

func TestFullClientNoTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": "just text"})
	}))
	defer srv.Close()

	c := NewFullClient(srv.URL, "", "whisper-1", "", 5*time.Second)
	res, err := c.TranscribeFull(context.Background(), []byte("x"), "")
	if err != nil {
		t.Fatalf("TranscribeFull: %v", err)
	}
	if res.Tokens != nil {
		t.Errorf("tokens = %+v, want nil", res.Tokens)
	}
	if res.Text != "just text" {
		t.Errorf("text = %q", res.Text)
	}
}
