package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
)

const (
	DefaultWhisperModel = "whisper-1"
	whisperBaseURL      = "https://api.openai.com/v1"
	whisperTimeout      = 60 * time.Second
	errBodyLimit        = 512
)

// HTTPError is a non-2xx reply from a transcription API.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("transcription: status %d: %s", e.Status, e.Body)
}

// Whisper transcribes through the OpenAI audio transcription endpoint,
// uploading the clip as a WAV file.
type Whisper struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewWhisper creates a transcriber. An empty model uses whisper-1.
func NewWhisper(apiKey, model string) *Whisper {
	if model == "" {
		model = DefaultWhisperModel
	}
	return &Whisper{
		apiKey:  apiKey,
		model:   model,
		baseURL: whisperBaseURL,
		client:  &http.Client{Timeout: whisperTimeout},
	}
}

// Transcribe performs one recognition attempt.
func (w *Whisper) Transcribe(ctx context.Context, clip *capture.Clip) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "answer.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(clip.WAV()); err != nil {
		return "", err
	}
	if err := mw.WriteField("model", w.model); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		w.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return "", &HTTPError{Status: resp.StatusCode, Body: string(detail)}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Text, nil
}
