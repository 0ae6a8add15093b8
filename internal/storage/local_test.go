package storage

import (
	"context"
	"io"
	"testing"
)

func TestLocalStoreSaveOpen(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "https://cdn.example.com/")
	ctx := context.Background()

	if s.Exists(ctx, "calls/a.wav") {
		t.Error("Exists = true before Save")
	}

	if err := s.Save(ctx, "calls/a.wav", []byte("RIFF-data"), "audio/wav"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !s.Exists(ctx, "calls/a.wav") {
		t.Error("Exists = false after Save")
	}
	if s.LocalPath("calls/a.wav") == "" {
		t.Error("LocalPath = empty after Save")
	}

	r, err := s.Open(ctx, "calls/a.wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "RIFF-data" {
		t.Errorf("data = %q", data)
	}
}

func TestLocalStoreURL(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "https://cdn.example.com/")
	url, err := s.URL(context.Background(), "calls/a.wav")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if url != "https://cdn.example.com/audio/calls/a.wav" {
		t.Errorf("url = %q", url)
	}

	noBase := NewLocalStore(t.TempDir(), "")
	url, err = noBase.URL(context.Background(), "calls/a.wav")
	if err != nil || url != "" {
		t.Errorf("url = %q, err = %v, want empty url", url, err)
	}
}
