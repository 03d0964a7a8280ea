package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/CodeCubCA/voicechat/internal/audio"
)

// MockTranscriber is the keyless fallback transcriber. It never calls out; a
// non-empty recording yields a fixed transcript.
type MockTranscriber struct{}

func NewMockTranscriber() *MockTranscriber { return &MockTranscriber{} }

func (m *MockTranscriber) Transcribe(_ context.Context, audioBytes []byte, _ string) (string, error) {
	if len(audioBytes) == 0 {
		return "", &TranscriptionError{Code: FailureNoAudio, Detail: "no audio data received"}
	}
	return "simulated voice input", nil
}

// MockSynthesizer is the keyless fallback synthesizer. It produces a short
// silent WAV clip so the playback path stays exercised without credentials.
type MockSynthesizer struct{}

func NewMockSynthesizer() *MockSynthesizer { return &MockSynthesizer{} }

func (m *MockSynthesizer) Synthesize(_ context.Context, req SynthesisRequest) (Clip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Clip{}, fmt.Errorf("synthesize: empty text")
	}
	// ~50ms of silence per 10 characters, capped at 2s.
	samples := len(req.Text) / 10 * 800
	if samples < 800 {
		samples = 800
	}
	if samples > 32000 {
		samples = 32000
	}
	wav, err := audio.EncodeWAVPCM16LE(make([]byte, samples*2), 16000)
	if err != nil {
		return Clip{}, err
	}
	return Clip{Audio: wav, MIMEType: "audio/wav", Format: "wav_16000"}, nil
}
