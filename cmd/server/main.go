// Interview server - orchestrates question playback, answer capture, and
// WebSocket sessions
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
	"github.com/instasitebuilder/code-mentor-platform/internal/config"
	"github.com/instasitebuilder/code-mentor-platform/internal/interview"
	"github.com/instasitebuilder/code-mentor-platform/internal/playback"
	"github.com/instasitebuilder/code-mentor-platform/internal/server"
	"github.com/instasitebuilder/code-mentor-platform/internal/store"
	"github.com/instasitebuilder/code-mentor-platform/internal/transcription"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	// Local overrides; absence is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres backs the question bank and the response store when either
	// selects it; both share one pool.
	var pg *store.Postgres
	if cfg.QuestionBank == config.BankPostgres || cfg.ResponseStore == config.StorePostgres {
		pg, err = store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	}

	var bank interview.QuestionBank
	switch cfg.QuestionBank {
	case config.BankPostgres:
		bank = pg
	default:
		bank = store.NewScriptBank(cfg.ScriptPath, interview.Details{
			Company:  cfg.CompanyName,
			Position: cfg.Position,
		})
	}

	var responses interview.ResponseStore
	switch cfg.ResponseStore {
	case config.StorePostgres:
		responses = pg
	default:
		responses = store.NewJSONStore(cfg.ResultsDir)
	}

	var recognizer transcription.Transcriber
	switch cfg.Transcriber {
	case config.TranscriberGoogle:
		recognizer = transcription.NewGoogle(transcription.GoogleConfig{
			ProjectID:       cfg.GoogleProjectID,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			Location:        cfg.GoogleSpeechLocation,
			Model:           cfg.GoogleSpeechModel,
			Language:        cfg.TranscribeLanguage,
		})
	default:
		recognizer = transcription.NewWhisper(cfg.OpenAIAPIKey, cfg.WhisperModel)
	}
	pipeline := transcription.NewPipeline(recognizer,
		time.Duration(cfg.TranscribeRetryDelaySeconds)*time.Second)

	srv := server.New(server.Options{
		Bank:        bank,
		Store:       responses,
		Transcriber: pipeline,
		Synthesizer: playback.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID),
		NewSource: func() capture.Source {
			return capture.NewDefaultSource(cfg.SampleRate)
		},
		BudgetSeconds: cfg.SessionBudgetSeconds,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("interview server starting",
			"http", cfg.HTTPAddr, "bank", cfg.QuestionBank,
			"store", cfg.ResponseStore, "transcriber", cfg.Transcriber)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
}
