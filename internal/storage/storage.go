package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/config"
)

// AudioStore abstracts raw call audio storage. The diarization provider
// fetches audio by URL, so every backend must be able to produce one.
type AudioStore interface {
	// Save stores audio data. key format: calls/{uuid}.{ext}
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// LocalPath returns the local filesystem path if the file exists on
	// disk. Returns "" if not available locally.
	LocalPath(key string) string

	// URL returns a URL through which the audio can be fetched by the
	// diarization provider (presigned for S3, PUBLIC_BASE_URL-based for
	// local). Returns "" when the backend cannot produce one.
	URL(ctx context.Context, key string) (string, error)

	// Open returns a reader for the audio file.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an audio file exists.
	Exists(ctx context.Context, key string) bool

	// Type returns "local" or "s3".
	Type() string
}

// New creates an AudioStore based on config. Returns an error if S3 is
// configured but unreachable.
func New(cfg *config.Config, log zerolog.Logger) (AudioStore, error) {
	if !cfg.S3.Enabled() {
		return NewLocalStore(cfg.AudioDir, cfg.PublicBaseURL), nil
	}

	s3store, err := NewS3Store(cfg.S3, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.S3.Bucket, cfg.S3.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.S3.Bucket).Str("endpoint", cfg.S3.Endpoint).Msg("S3 connection verified")

	return s3store, nil
}
