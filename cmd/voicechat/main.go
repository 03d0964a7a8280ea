package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CodeCubCA/voicechat/internal/assistant"
	"github.com/CodeCubCA/voicechat/internal/brain"
	"github.com/CodeCubCA/voicechat/internal/config"
	"github.com/CodeCubCA/voicechat/internal/httpapi"
	"github.com/CodeCubCA/voicechat/internal/observability"
	"github.com/CodeCubCA/voicechat/internal/persona"
	"github.com/CodeCubCA/voicechat/internal/session"
	"github.com/CodeCubCA/voicechat/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	catalog, err := persona.Load(cfg.PersonaFile)
	if err != nil {
		log.Fatalf("persona catalog error: %v", err)
	}

	ctx := context.Background()
	adapter, err := brain.NewAdapter(ctx, brain.Config{
		Mode:          cfg.BrainProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		log.Fatalf("brain adapter init failed: %v", err)
	}
	log.Printf("brain provider: %T", adapter)

	var (
		transcriber speech.Transcriber
		synthesizer speech.Synthesizer
	)

	tryCloudSTT := func() bool {
		if strings.TrimSpace(cfg.GoogleSpeechAPIKey) == "" {
			return false
		}
		transcriber = speech.NewGoogleSTT(speech.GoogleSTTConfig{
			APIKey:  cfg.GoogleSpeechAPIKey,
			BaseURL: cfg.GoogleSpeechBaseURL,
		})
		log.Printf("transcription provider: google speech")
		return true
	}
	tryCloudTTS := func() bool {
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
			return false
		}
		synthesizer = speech.NewElevenLabsTTS(speech.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			BaseURL:      cfg.ElevenLabsBaseURL,
			OutputFormat: cfg.ElevenLabsOutputFormat,
		})
		log.Printf("synthesis provider: elevenlabs")
		return true
	}

	switch strings.ToLower(strings.TrimSpace(cfg.SpeechProvider)) {
	case "cloud":
		if !tryCloudSTT() {
			log.Fatalf("SPEECH_PROVIDER=cloud but GOOGLE_SPEECH_API_KEY is not set")
		}
		if !tryCloudTTS() {
			log.Fatalf("SPEECH_PROVIDER=cloud but ELEVENLABS_API_KEY is not set")
		}
	case "mock":
		transcriber = speech.NewMockTranscriber()
		synthesizer = speech.NewMockSynthesizer()
		log.Printf("speech providers: mock")
	default: // auto
		if !tryCloudSTT() {
			transcriber = speech.NewMockTranscriber()
			log.Printf("transcription provider: mock (no google speech key)")
		}
		if !tryCloudTTS() {
			synthesizer = speech.NewMockSynthesizer()
			log.Printf("synthesis provider: mock (no elevenlabs key)")
		}
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	engine := assistant.NewEngine(assistant.Config{
		Catalog:            catalog,
		Brain:              adapter,
		Transcriber:        transcriber,
		Synthesizer:        synthesizer,
		Metrics:            metrics,
		ContextWindowTurns: cfg.ContextWindowTurns,
		MinRecording:       cfg.MinRecording,
	})

	api := httpapi.New(cfg, sessions, engine, catalog, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 30*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
