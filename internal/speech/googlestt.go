package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGoogleSTTBaseURL = "https://speech.googleapis.com"

// GoogleSTTConfig configures the Google Speech recognize adapter.
type GoogleSTTConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// GoogleSTT transcribes single-channel recordings through the Google Speech
// recognize endpoint. One blocking request per recording, no retry.
type GoogleSTT struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGoogleSTT(cfg GoogleSTTConfig) *GoogleSTT {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGoogleSTTBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoogleSTT{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type googleRecognizeRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleRecognitionAudio  `json:"audio"`
}

type googleRecognitionConfig struct {
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
}

type googleRecognitionAudio struct {
	Content string `json:"content"`
}

type googleRecognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

func (g *GoogleSTT) Transcribe(ctx context.Context, audio []byte, languageTag string) (string, error) {
	if len(audio) == 0 {
		return "", &TranscriptionError{Code: FailureNoAudio, Detail: "no audio data received"}
	}
	if strings.TrimSpace(languageTag) == "" {
		languageTag = "en-US"
	}

	payload, err := json.Marshal(googleRecognizeRequest{
		Config: googleRecognitionConfig{
			LanguageCode:               languageTag,
			EnableAutomaticPunctuation: true,
		},
		Audio: googleRecognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	})
	if err != nil {
		return "", &TranscriptionError{Code: FailureUnknown, Detail: err.Error()}
	}

	url := fmt.Sprintf("%s/v1/speech:recognize?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &TranscriptionError{Code: FailureUnknown, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return "", &TranscriptionError{Code: FailureService, Detail: err.Error(), Retryable: true}
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		terr := classifyStatus(res.StatusCode)
		terr.Detail = fmt.Sprintf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
		return "", terr
	}

	var parsed googleRecognizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &TranscriptionError{Code: FailureService, Detail: "invalid provider response: " + err.Error()}
	}

	var out strings.Builder
	for _, r := range parsed.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		// Best alternative only; the provider sorts by confidence.
		out.WriteString(r.Alternatives[0].Transcript)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", &TranscriptionError{Code: FailureUnintelligible, Detail: "could not understand audio"}
	}
	return text, nil
}
