package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Set required env vars for all subtests
	cleanup := setEnvs(t, map[string]string{
		"DATABASE_URL":  "postgres://localhost/test",
		"DIARIZE_TOKEN": "tok",
		"STT_URL":       "https://stt.example/api/v1/stt/post/",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("nonexistent.env")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.AudioDir != "./audio" {
			t.Errorf("AudioDir = %q, want ./audio", cfg.AudioDir)
		}
		if cfg.DiarizeNumSpeakers != 2 {
			t.Errorf("DiarizeNumSpeakers = %d, want 2", cfg.DiarizeNumSpeakers)
		}
		if cfg.DiarizePollInterval != time.Second {
			t.Errorf("DiarizePollInterval = %v, want 1s", cfg.DiarizePollInterval)
		}
		if cfg.STTWorkers != 4 {
			t.Errorf("STTWorkers = %d, want 4", cfg.STTWorkers)
		}
		if cfg.STTTimeout != 30*time.Second {
			t.Errorf("STTTimeout = %v, want 30s", cfg.STTTimeout)
		}
		if cfg.S3.Enabled() {
			t.Error("S3.Enabled() = true with no bucket configured")
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load("nonexistent.env")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DatabaseURL != "postgres://localhost/test" {
			t.Errorf("DatabaseURL = %q, want postgres://localhost/test", cfg.DatabaseURL)
		}
		if cfg.DiarizeToken != "tok" {
			t.Errorf("DiarizeToken = %q, want tok", cfg.DiarizeToken)
		}
	})

	t.Run("s3_prefix", func(t *testing.T) {
		c := setEnvs(t, map[string]string{"S3_BUCKET": "calls"})
		defer c()
		cfg, err := Load("nonexistent.env")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.S3.Enabled() {
			t.Error("S3.Enabled() = false, want true")
		}
		if cfg.S3.PresignExpiry != time.Hour {
			t.Errorf("PresignExpiry = %v, want 1h", cfg.S3.PresignExpiry)
		}
	})
}

func TestLoadMissingRequired(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"DATABASE_URL":  "",
		"DIARIZE_TOKEN": "",
		"STT_URL":       "",
	})
	defer cleanup()
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("DIARIZE_TOKEN")
	os.Unsetenv("STT_URL")

	_, err := Load("nonexistent.env")
	if err == nil {
		t.Error("expected error when required env vars are missing")
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
