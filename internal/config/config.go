package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	AuthToken    string        `env:"AUTH_TOKEN"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	// Audio storage. PublicBaseURL is required for the local backend since
	// the diarization provider fetches audio by URL.
	AudioDir      string `env:"AUDIO_DIR" envDefault:"./audio"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// Optional drop directory. Audio files appearing here are ingested as calls.
	WatchDir string `env:"WATCH_DIR"`

	// Diarization provider (pyannote-compatible API).
	DiarizeURL          string        `env:"DIARIZE_URL" envDefault:"https://api.pyannote.ai/v1"`
	DiarizeToken        string        `env:"DIARIZE_TOKEN,required"`
	DiarizeNumSpeakers  int           `env:"DIARIZE_NUM_SPEAKERS" envDefault:"2"`
	DiarizePollInterval time.Duration `env:"DIARIZE_POLL_INTERVAL" envDefault:"1s"`
	DiarizePollTimeout  time.Duration `env:"DIARIZE_POLL_TIMEOUT" envDefault:"10m"`

	// Segment-mode STT provider.
	STTURL      string        `env:"STT_URL,required"`
	STTAPIKey   string        `env:"STT_API_KEY"`
	STTLanguage string        `env:"STT_LANGUAGE" envDefault:"uz"`
	STTTimeout  time.Duration `env:"STT_TIMEOUT" envDefault:"30s"`
	STTWorkers  int           `env:"STT_WORKERS" envDefault:"4"`

	// Full-audio STT provider (OpenAI-compatible /audio/transcriptions).
	// When set, the pipeline transcribes the whole recording once and aligns
	// word timestamps onto diarization windows instead of cutting segments.
	WhisperURL     string        `env:"WHISPER_URL"`
	WhisperAPIKey  string        `env:"WHISPER_API_KEY"`
	WhisperModel   string        `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	WhisperPrompt  string        `env:"WHISPER_PROMPT"`
	WhisperTimeout time.Duration `env:"WHISPER_TIMEOUT" envDefault:"5m"`

	// Analysis collaborator (OpenAI-compatible chat completions).
	AnalyzeURL    string `env:"ANALYZE_URL"`
	AnalyzeAPIKey string `env:"ANALYZE_API_KEY"`
	AnalyzeModel  string `env:"ANALYZE_MODEL" envDefault:"gpt-4o-mini"`

	// Task runner.
	Workers   int `env:"PIPELINE_WORKERS" envDefault:"2"`
	QueueSize int `env:"PIPELINE_QUEUE_SIZE" envDefault:"64"`

	// Optional MQTT event publishing.
	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"callscribe"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`
	MQTTTopicBase string `env:"MQTT_TOPIC_BASE" envDefault:"callscribe"`

	S3 S3Config `envPrefix:"S3_"`
}

// S3Config configures the optional S3 audio backend.
type S3Config struct {
	Bucket        string        `env:"BUCKET"`
	Region        string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint      string        `env:"ENDPOINT"`
	AccessKey     string        `env:"ACCESS_KEY"`
	SecretKey     string        `env:"SECRET_KEY"`
	Prefix        string        `env:"PREFIX"`
	PresignExpiry time.Duration `env:"PRESIGN_EXPIRY" envDefault:"1h"`
}

// Enabled reports whether the S3 backend is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Load reads configuration from a .env file (silent if missing) and
// environment variables. Environment variables win over .env entries.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
