package transcription

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
)

const speechAPIEndpointPort = 443

// GoogleConfig configures the Cloud Speech transcriber.
type GoogleConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
	Language        string
}

// Google transcribes through the Cloud Speech v2 batch recognizer. Clips
// are short (one answer each), so the synchronous Recognize call suffices.
type Google struct {
	cfg GoogleConfig
}

// NewGoogle creates a transcriber.
func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	return &Google{cfg: cfg}
}

// Transcribe performs one recognition attempt.
func (g *Google) Transcribe(ctx context.Context, clip *capture.Clip) (string, error) {
	var opts []option.ClientOption
	if g.cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(g.cfg.CredentialsJSON)))
	}
	if g.cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(
			fmt.Sprintf("%s-speech.googleapis.com:%d", g.cfg.Location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_",
			g.cfg.ProjectID, g.cfg.Location),
		Config: &speechpb.RecognitionConfig{
			Model:         g.cfg.Model,
			LanguageCodes: []string{g.cfg.Language},
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   int32(clip.SampleRate),
					AudioChannelCount: 1,
				},
			},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: clip.PCM16()},
	})
	if err != nil {
		return "", err
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		parts = append(parts, result.GetAlternatives()[0].GetTranscript())
	}
	return strings.Join(parts, " "), nil
}
