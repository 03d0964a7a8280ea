package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleSTTTranscribe(t *testing.T) {
	var gotLanguage string
	var gotAudio []byte

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech:recognize" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		var req googleRecognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotLanguage = req.Config.LanguageCode
		gotAudio, _ = base64.StdEncoding.DecodeString(req.Audio.Content)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"alternatives": []map[string]any{
					{"transcript": "hello there", "confidence": 0.92},
				}},
			},
		})
	}))
	defer ts.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "test-key", BaseURL: ts.URL})
	text, err := stt.Transcribe(context.Background(), []byte("fake-wav-bytes"), "fr-FR")
	if err != nil {
		t.Fatalf("Transcribe error = %v", err)
	}
	if text != "hello there" {
		t.Fatalf("text = %q", text)
	}
	if gotLanguage != "fr-FR" {
		t.Fatalf("language sent = %q", gotLanguage)
	}
	if string(gotAudio) != "fake-wav-bytes" {
		t.Fatalf("audio sent = %q", gotAudio)
	}
}

func TestGoogleSTTEmptyAudio(t *testing.T) {
	stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "k", BaseURL: "http://unused.invalid"})
	_, err := stt.Transcribe(context.Background(), nil, "en-US")
	var terr *TranscriptionError
	if !errors.As(err, &terr) || terr.Code != FailureNoAudio {
		t.Fatalf("err = %v, want no_audio", err)
	}
}

func TestGoogleSTTEmptyResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "k", BaseURL: ts.URL})
	_, err := stt.Transcribe(context.Background(), []byte("audio"), "en-US")
	var terr *TranscriptionError
	if !errors.As(err, &terr) || terr.Code != FailureUnintelligible {
		t.Fatalf("err = %v, want unintelligible", err)
	}
}

func TestGoogleSTTServiceStatus(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusForbidden, false},
	}
	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "provider unhappy", tc.status)
		}))
		stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "k", BaseURL: ts.URL})
		_, err := stt.Transcribe(context.Background(), []byte("audio"), "en-US")
		ts.Close()

		var terr *TranscriptionError
		if !errors.As(err, &terr) {
			t.Fatalf("status %d: err = %v, want TranscriptionError", tc.status, err)
		}
		if terr.Code != FailureService {
			t.Fatalf("status %d: code = %q, want service_error", tc.status, terr.Code)
		}
		if terr.Retryable != tc.retryable {
			t.Fatalf("status %d: retryable = %v, want %v", tc.status, terr.Retryable, tc.retryable)
		}
	}
}

func TestGoogleSTTConnectionRefused(t *testing.T) {
	stt := NewGoogleSTT(GoogleSTTConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	_, err := stt.Transcribe(context.Background(), []byte("audio"), "en-US")
	var terr *TranscriptionError
	if !errors.As(err, &terr) || terr.Code != FailureService || !terr.Retryable {
		t.Fatalf("err = %v, want retryable service_error", err)
	}
}
