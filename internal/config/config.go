// Package config handles service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Provider names accepted by the config.
const (
	BankScript   = "script"
	BankPostgres = "postgres"

	StoreFile     = "file"
	StorePostgres = "postgres"

	TranscriberWhisper = "whisper"
	TranscriberGoogle  = "google"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`

	// Question and response storage
	QuestionBank  string `env:"QUESTION_BANK" envDefault:"script"`
	ResponseStore string `env:"RESPONSE_STORE" envDefault:"file"`
	DatabaseURL   string `env:"DATABASE_URL"`
	ScriptPath    string `env:"QUESTION_SCRIPT" envDefault:"questions.yaml"`
	ResultsDir    string `env:"RESULTS_DIR" envDefault:"results"`
	CompanyName   string `env:"COMPANY_NAME"`
	Position      string `env:"POSITION"`

	// Speech-to-text
	Transcriber           string `env:"TRANSCRIBER" envDefault:"whisper"`
	OpenAIAPIKey          string `env:"OPENAI_API_KEY"`
	WhisperModel          string `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	GoogleProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"latest_short"`
	TranscribeLanguage    string `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`

	// Text-to-speech
	ElevenLabsAPIKey  string `env:"ELEVEN_LABS_API_KEY"`
	ElevenLabsVoiceID string `env:"ELEVEN_LABS_VOICE_ID"`

	// Session
	SessionBudgetSeconds        int `env:"SESSION_BUDGET_SECONDS" envDefault:"600"`
	SampleRate                  int `env:"SAMPLE_RATE" envDefault:"16000"`
	TranscribeRetryDelaySeconds int `env:"TRANSCRIBE_RETRY_DELAY_SECONDS" envDefault:"2"`
}

// Load parses and validates the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.QuestionBank {
	case BankScript:
		if c.ScriptPath == "" {
			return fmt.Errorf("QUESTION_SCRIPT is required when QUESTION_BANK=%s", BankScript)
		}
	case BankPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when QUESTION_BANK=%s", BankPostgres)
		}
	default:
		return fmt.Errorf("QUESTION_BANK must be %q or %q, got %q", BankScript, BankPostgres, c.QuestionBank)
	}

	switch c.ResponseStore {
	case StoreFile:
		if c.ResultsDir == "" {
			return fmt.Errorf("RESULTS_DIR is required when RESPONSE_STORE=%s", StoreFile)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when RESPONSE_STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("RESPONSE_STORE must be %q or %q, got %q", StoreFile, StorePostgres, c.ResponseStore)
	}

	switch c.Transcriber {
	case TranscriberWhisper:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TRANSCRIBER=%s", TranscriberWhisper)
		}
	case TranscriberGoogle:
		if c.GoogleProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID is required when TRANSCRIBER=%s", TranscriberGoogle)
		}
	default:
		return fmt.Errorf("TRANSCRIBER must be %q or %q, got %q", TranscriberWhisper, TranscriberGoogle, c.Transcriber)
	}

	if c.SessionBudgetSeconds <= 0 {
		return fmt.Errorf("SESSION_BUDGET_SECONDS must be positive, got %d", c.SessionBudgetSeconds)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.TranscribeRetryDelaySeconds < 0 {
		return fmt.Errorf("TRANSCRIBE_RETRY_DELAY_SECONDS cannot be negative, got %d", c.TranscribeRetryDelaySeconds)
	}
	return nil
}
