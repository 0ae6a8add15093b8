package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/analyze"
	"github.com/snarg/callscribe/internal/api"
	"github.com/snarg/callscribe/internal/audio"
	"github.com/snarg/callscribe/internal/config"
	"github.com/snarg/callscribe/internal/database"
	"github.com/snarg/callscribe/internal/diarize"
	"github.com/snarg/callscribe/internal/events"
	"github.com/snarg/callscribe/internal/pipeline"
	"github.com/snarg/callscribe/internal/storage"
	"github.com/snarg/callscribe/internal/task"
	"github.com/snarg/callscribe/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	// Config
	cfg, err := config.Load("")
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("callscribe starting")

	if !audio.CheckFFmpeg() {
		log.Warn().Msg("ffmpeg not found in PATH; only 16kHz mono WAV input will decode")
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}

	// Audio store
	store, err := storage.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio store")
	}
	log.Info().Str("backend", store.Type()).Msg("audio store ready")

	// MQTT event publisher (nil when unconfigured)
	ev, err := events.Connect(events.Options{
		BrokerURL:   cfg.MQTTBrokerURL,
		ClientID:    cfg.MQTTClientID,
		TopicPrefix: cfg.MQTTTopicBase,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		Log:         log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
	}
	defer ev.Close()

	// Pipeline collaborators
	diarizer := diarize.NewClient(cfg.DiarizeURL, cfg.DiarizeToken, 30*time.Second)
	segClient := transcribe.NewSegmentClient(cfg.STTURL, cfg.STTAPIKey, cfg.STTLanguage, cfg.STTTimeout)
	fanout := transcribe.NewFanout(segClient, cfg.STTWorkers, log)

	var full pipeline.FullTranscriber
	if cfg.WhisperURL != "" {
		full = transcribe.NewFullClient(cfg.WhisperURL, cfg.WhisperAPIKey, cfg.WhisperModel, cfg.WhisperPrompt, cfg.WhisperTimeout)
		log.Info().Str("model", cfg.WhisperModel).Msg("full-audio transcription mode enabled")
	}

	var analyzer pipeline.Analyzer
	if cfg.AnalyzeURL != "" {
		analyzer = analyze.NewClient(cfg.AnalyzeURL, cfg.AnalyzeAPIKey, cfg.AnalyzeModel, log)
	}

	orch := pipeline.New(pipeline.Options{
		Diarizer:     diarizer,
		Fanout:       fanout,
		Full:         full,
		Analyzer:     analyzer,
		NumSpeakers:  cfg.DiarizeNumSpeakers,
		PollInterval: cfg.DiarizePollInterval,
		PollTimeout:  cfg.DiarizePollTimeout,
		Log:          log.With().Str("component", "pipeline").Logger(),
		OnJobCreated: func(callID int64, jobID string) {
			if err := db.SetCallJobID(context.Background(), callID, jobID); err != nil {
				log.Warn().Err(err).Int64("call_id", callID).Msg("failed to record diarize job id")
			}
		},
	})

	// Task runner
	runner := task.NewRunner(task.Options{
		DB:        db,
		Store:     store,
		Pipeline:  orch,
		Events:    ev,
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Log:       log,
	})
	if err := runner.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("startup recovery failed")
	}
	runner.Start()

	// Optional drop-directory watcher
	var watcher *task.Watcher
	if cfg.WatchDir != "" {
		watcher = task.NewWatcher(runner, db, store, cfg.WatchDir, cfg.STTLanguage, cfg.DiarizeNumSpeakers, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start drop-directory watcher")
		}
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, db, store, runner, ev, version, startTime, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if watcher != nil {
		watcher.Stop()
	}
	runner.Stop()

	log.Info().Msg("callscribe stopped")
}
