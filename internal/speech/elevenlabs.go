package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsConfig configures the ElevenLabs text-to-speech adapter.
type ElevenLabsConfig struct {
	APIKey          string
	BaseURL         string
	StandardModelID string
	NeuralModelID   string
	OutputFormat    string
	Timeout         time.Duration
}

// ElevenLabsTTS synthesizes speech over the ElevenLabs HTTP API. The engine
// tier of the request selects the provider model.
type ElevenLabsTTS struct {
	apiKey          string
	baseURL         string
	standardModelID string
	neuralModelID   string
	outputFormat    string
	client          *http.Client
}

func NewElevenLabsTTS(cfg ElevenLabsConfig) *ElevenLabsTTS {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	standard := strings.TrimSpace(cfg.StandardModelID)
	if standard == "" {
		standard = "eleven_flash_v2_5"
	}
	neural := strings.TrimSpace(cfg.NeuralModelID)
	if neural == "" {
		neural = "eleven_multilingual_v2"
	}
	format := strings.TrimSpace(cfg.OutputFormat)
	if format == "" {
		format = "mp3_44100_128"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ElevenLabsTTS{
		apiKey:          strings.TrimSpace(cfg.APIKey),
		baseURL:         baseURL,
		standardModelID: standard,
		neuralModelID:   neural,
		outputFormat:    format,
		client:          &http.Client{Timeout: timeout},
	}
}

type elevenLabsSpeakRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	LanguageCode string `json:"language_code,omitempty"`
}

func (e *ElevenLabsTTS) Synthesize(ctx context.Context, req SynthesisRequest) (Clip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Clip{}, fmt.Errorf("synthesize: empty text")
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return Clip{}, fmt.Errorf("synthesize: missing voice id")
	}

	modelID := e.standardModelID
	if req.Engine == EngineNeural {
		modelID = e.neuralModelID
	}

	payload, err := json.Marshal(elevenLabsSpeakRequest{
		Text:         req.Text,
		ModelID:      modelID,
		LanguageCode: languageCodeFor(modelID, req.LanguageCode),
	})
	if err != nil {
		return Clip{}, fmt.Errorf("synthesize: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", e.baseURL, req.VoiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Clip{}, fmt.Errorf("synthesize: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	res, err := e.client.Do(httpReq)
	if err != nil {
		return Clip{}, fmt.Errorf("synthesize: send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Clip{}, fmt.Errorf("synthesize: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return Clip{}, fmt.Errorf("synthesize: read audio: %w", err)
	}
	if len(audio) == 0 {
		return Clip{}, fmt.Errorf("synthesize: provider returned no audio")
	}

	mime := strings.TrimSpace(res.Header.Get("Content-Type"))
	if mime == "" {
		mime = MIMEForFormat(e.outputFormat)
	}
	return Clip{Audio: audio, MIMEType: mime, Format: e.outputFormat}, nil
}

// languageCodeFor drops the language hint for models that reject one; only
// the flash/turbo family accepts an explicit language_code.
func languageCodeFor(modelID, code string) string {
	if strings.Contains(modelID, "flash") || strings.Contains(modelID, "turbo") {
		return strings.TrimSpace(code)
	}
	return ""
}

// MIMEForFormat maps a provider output format tag to a MIME type.
func MIMEForFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	switch {
	case strings.Contains(f, "wav"):
		return "audio/wav"
	case strings.Contains(f, "mp3"):
		return "audio/mpeg"
	case strings.Contains(f, "ogg"):
		return "audio/ogg"
	case strings.Contains(f, "pcm"):
		return "audio/L16"
	default:
		return "application/octet-stream"
	}
}
