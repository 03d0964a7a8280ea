package speech

import (
	"context"
	"fmt"
)

// FailureCode classifies transcription failures into the small set the UI
// knows how to present.
type FailureCode string

const (
	FailureNoAudio        FailureCode = "no_audio"
	FailureUnintelligible FailureCode = "unintelligible"
	FailureService        FailureCode = "service_error"
	FailureUnknown        FailureCode = "unknown"
)

// TranscriptionError is a provider failure normalized to the four-way
// taxonomy. Retryable is informational only; the render engine never retries
// a recording automatically.
type TranscriptionError struct {
	Code      FailureCode
	Detail    string
	Retryable bool
}

func (e *TranscriptionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("transcription failed: %s", e.Code)
	}
	return fmt.Sprintf("transcription failed: %s: %s", e.Code, e.Detail)
}

// Transcriber converts one finished recording into text. A single blocking
// call with no internal retry; failures are *TranscriptionError.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageTag string) (string, error)
}

// Engine tiers offered by synthesis providers.
const (
	EngineStandard = "standard"
	EngineNeural   = "neural"
)

// SynthesisRequest carries everything a provider needs to speak one turn.
type SynthesisRequest struct {
	Text         string
	VoiceID      string
	LanguageCode string
	Engine       string
}

// Clip is one synthesized audio artifact.
type Clip struct {
	Audio    []byte
	MIMEType string
	Format   string
}

// Synthesizer converts text to speech. The outcome is binary: a clip or an
// error; callers surface errors as a degraded notice and may try again on a
// later pass.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (Clip, error)
}
