package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CodeCubCA/voicechat/internal/audio"
	"github.com/CodeCubCA/voicechat/internal/brain"
	"github.com/CodeCubCA/voicechat/internal/chat"
	"github.com/CodeCubCA/voicechat/internal/observability"
	"github.com/CodeCubCA/voicechat/internal/persona"
	"github.com/CodeCubCA/voicechat/internal/session"
	"github.com/CodeCubCA/voicechat/internal/speech"
)

// Event is one discrete input from the UI. Processing an event runs render
// passes over the session until the state is stable.
type Event interface{ eventName() string }

// TextSubmitted is a typed message from the input box.
type TextSubmitted struct{ Text string }

// RecordingCaptured is a finished voice recording from the browser recorder.
// The same recorder widget re-delivers the last recording on every UI
// refresh, so captures are deduplicated by content fingerprint.
type RecordingCaptured struct{ Audio []byte }

// SettingsChanged updates the personality/language/voice selections. Empty
// fields keep the current value.
type SettingsChanged struct {
	PersonalityID string
	LanguageID    string
	VoiceID       string
}

// ResetRequested clears the conversation ("clear chat history").
type ResetRequested struct{}

func (TextSubmitted) eventName() string     { return "text_submitted" }
func (RecordingCaptured) eventName() string { return "recording_captured" }
func (SettingsChanged) eventName() string   { return "settings_changed" }
func (ResetRequested) eventName() string    { return "reset" }

// maxPassesPerEvent bounds the render loop. Two passes settle any single
// event (transcription appends, then generation and synthesis); the cap only
// guards against a future step requesting reruns forever.
const maxPassesPerEvent = 8

// Config wires an Engine. Transcriber and Synthesizer may be nil, degrading
// voice input and speech output to visible "unavailable" states.
type Config struct {
	Catalog     *persona.Catalog
	Brain       brain.Adapter
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Metrics     *observability.Metrics

	// ContextWindowTurns is how many trailing turns are replayed to the
	// language model. Defaults to 5.
	ContextWindowTurns int
	// MinRecording rejects decodable recordings shorter than this as
	// "no audio captured" without a provider call. Defaults to 100ms.
	MinRecording time.Duration
}

// Engine drives sequential render passes over a session: one pass renders
// the store, generates a reply when the last turn is a user turn, fills the
// audio cache, and consumes at most one pending recording.
type Engine struct {
	catalog      *persona.Catalog
	brain        brain.Adapter
	transcriber  speech.Transcriber
	synthesizer  speech.Synthesizer
	metrics      *observability.Metrics
	windowTurns  int
	minRecording time.Duration
}

func NewEngine(cfg Config) *Engine {
	window := cfg.ContextWindowTurns
	if window <= 0 {
		window = 5
	}
	minRec := cfg.MinRecording
	if minRec <= 0 {
		minRec = 100 * time.Millisecond
	}
	return &Engine{
		catalog:      cfg.Catalog,
		brain:        cfg.Brain,
		transcriber:  cfg.Transcriber,
		synthesizer:  cfg.Synthesizer,
		metrics:      cfg.Metrics,
		windowTurns:  window,
		minRecording: minRec,
	}
}

// Process applies one event to the session and runs render passes until no
// pass requests a rerun, returning the stable view. Passing a nil event is a
// plain re-render and leaves an already-stable session untouched.
func (e *Engine) Process(ctx context.Context, s *session.Session, ev Event) View {
	s.Lock()
	defer s.Unlock()

	var notices []Notice
	e.applyEvent(s, ev, &notices)

	for pass := 0; pass < maxPassesPerEvent; pass++ {
		e.metrics.RenderPasses.Inc()
		if !e.renderPass(ctx, s, &notices) {
			break
		}
	}

	return e.buildView(s, notices)
}

func (e *Engine) applyEvent(s *session.Session, ev Event, notices *[]Notice) {
	switch ev := ev.(type) {
	case TextSubmitted:
		text := strings.TrimSpace(ev.Text)
		if text != "" {
			s.Turns.Append(chat.Turn{Role: chat.RoleUser, Content: text})
		}
	case RecordingCaptured:
		// Fingerprint is recorded on accept, so a repeated delivery of the
		// same bytes never refills the slot.
		s.SubmitRecording(ev.Audio)
	case SettingsChanged:
		e.applySettings(s, ev, notices)
	case ResetRequested:
		s.Reset()
		e.metrics.SessionEvents.WithLabelValues("reset").Inc()
	}
}

func (e *Engine) applySettings(s *session.Session, ev SettingsChanged, notices *[]Notice) {
	if id := strings.TrimSpace(ev.PersonalityID); id != "" {
		if _, ok := e.catalog.Personality(id); ok {
			s.PersonalityID = id
		} else {
			*notices = append(*notices, Notice{Code: NoticeInvalidSelection, Message: fmt.Sprintf("unknown personality %q", id)})
		}
	}
	if id := strings.TrimSpace(ev.LanguageID); id != "" {
		if lang, ok := e.catalog.Language(id); ok {
			s.LanguageID = id
			// Voices are language-scoped; a stale voice falls back to the
			// new language's default.
			if v, ok := e.catalog.Voice(s.VoiceID); !ok || !strings.EqualFold(v.Language, lang.Tag) {
				if dv, ok := e.catalog.DefaultVoice(lang.Tag); ok {
					s.VoiceID = dv.ID
				} else {
					s.VoiceID = ""
				}
			}
		} else {
			*notices = append(*notices, Notice{Code: NoticeInvalidSelection, Message: fmt.Sprintf("unknown language %q", id)})
		}
	}
	if id := strings.TrimSpace(ev.VoiceID); id != "" {
		lang := e.language(s)
		if v, ok := e.catalog.Voice(id); ok && strings.EqualFold(v.Language, lang.Tag) {
			s.VoiceID = id
		} else {
			*notices = append(*notices, Notice{Code: NoticeInvalidSelection, Message: fmt.Sprintf("unknown voice %q for %s", id, lang.Name)})
		}
	}
}

// renderPass executes the steps of one view evaluation in order: reply
// generation, speech synthesis, pending-recording transcription. It reports
// whether state changed in a way that needs another pass.
func (e *Engine) renderPass(ctx context.Context, s *session.Session, notices *[]Notice) bool {
	rerun := false

	// A reply is owed exactly when the last turn is a user turn; appending
	// the reply makes this step a no-op on the next pass.
	if last, ok := s.Turns.Last(); ok && last.Role == chat.RoleUser {
		e.generateReply(ctx, s)
	}

	e.fillAudioCache(ctx, s, notices)

	// Consume at most one pending recording. The slot is emptied before the
	// adapter runs: a failed transcription must never be retried by a later
	// pass.
	if rec, ok := s.TakePendingRecording(); ok {
		if text, ok := e.transcribeRecording(ctx, s, rec, notices); ok {
			s.Turns.Append(chat.Turn{Role: chat.RoleUser, Content: text})
			rerun = true
		}
	}

	return rerun
}

func (e *Engine) generateReply(ctx context.Context, s *session.Session) {
	p, ok := e.catalog.Personality(s.PersonalityID)
	if !ok {
		p = e.catalog.DefaultPersonality()
	}
	lang := e.language(s)

	directive := ""
	if lang.ID != e.catalog.DefaultLanguage().ID {
		directive = fmt.Sprintf("Respond in %s.", lang.Name)
	}

	start := time.Now()
	reply, err := e.brain.Generate(ctx, brain.PromptRequest{
		SystemPrompt:      p.SystemPrompt,
		LanguageDirective: directive,
		Transcript:        s.Turns.ContextWindow(e.windowTurns),
	})
	e.metrics.ObserveGenerationLatency(time.Since(start))

	if err != nil {
		e.metrics.ProviderCalls.WithLabelValues("brain", "error").Inc()
		// Generation failures go into history as error turns: the failure
		// stays visible and the conversation is not silently stalled.
		s.Turns.Append(chat.Turn{Role: chat.RoleAssistant, Content: "Error: " + err.Error(), Error: true})
		return
	}
	e.metrics.ProviderCalls.WithLabelValues("brain", "ok").Inc()
	s.Turns.Append(chat.Turn{Role: chat.RoleAssistant, Content: reply})
}

// fillAudioCache synthesizes speech for every assistant turn whose cache
// entry is missing or was produced under a different voice/language
// selection. Failures are reported but not cached, so a later pass may
// succeed once the provider recovers.
func (e *Engine) fillAudioCache(ctx context.Context, s *session.Session, notices *[]Notice) {
	if e.synthesizer == nil {
		return
	}
	voice, ok := e.catalog.Voice(s.VoiceID)
	if !ok {
		return
	}
	lang := e.language(s)

	for i, t := range s.Turns.Turns() {
		if t.Role != chat.RoleAssistant || t.Error {
			continue
		}
		if s.Audio.Matches(i, voice.ID, lang.Tag) {
			e.metrics.SynthesisCacheEvents.WithLabelValues("hit").Inc()
			continue
		}
		_, refreshing := s.Audio.Get(i)

		clip, err := e.synthesizer.Synthesize(ctx, speech.SynthesisRequest{
			Text:         t.Content,
			VoiceID:      voice.ID,
			LanguageCode: lang.Tag,
			Engine:       string(voice.Engine()),
		})
		if err != nil {
			e.metrics.ProviderCalls.WithLabelValues("tts", "error").Inc()
			*notices = append(*notices, Notice{
				Code:      NoticeSynthesisUnavailable,
				Message:   "Speech synthesis unavailable for this reply",
				TurnIndex: i,
			})
			continue
		}
		e.metrics.ProviderCalls.WithLabelValues("tts", "ok").Inc()
		if refreshing {
			e.metrics.SynthesisCacheEvents.WithLabelValues("refresh").Inc()
		} else {
			e.metrics.SynthesisCacheEvents.WithLabelValues("miss").Inc()
		}
		s.Audio.Put(i, session.ClipEntry{VoiceID: voice.ID, LanguageCode: lang.Tag, Clip: clip})
	}
}

func (e *Engine) transcribeRecording(ctx context.Context, s *session.Session, rec []byte, notices *[]Notice) (string, bool) {
	if e.transcriber == nil {
		*notices = append(*notices, Notice{
			Code:    NoticeVoiceInputDisabled,
			Message: "Voice input is not configured",
		})
		return "", false
	}

	if info, ok := audio.ProbeWAV(rec); ok && info.Duration() < e.minRecording {
		e.metrics.TranscriptionOutcomes.WithLabelValues(string(speech.FailureNoAudio)).Inc()
		*notices = append(*notices, Notice{
			Code:    NoticeNoAudio,
			Message: "No audio captured - please check your microphone",
		})
		return "", false
	}

	lang := e.language(s)
	text, err := e.transcriber.Transcribe(ctx, rec, lang.Tag)
	if err != nil {
		var terr *speech.TranscriptionError
		if !errors.As(err, &terr) {
			terr = &speech.TranscriptionError{Code: speech.FailureUnknown, Detail: err.Error()}
		}
		e.metrics.ProviderCalls.WithLabelValues("stt", "error").Inc()
		e.metrics.TranscriptionOutcomes.WithLabelValues(string(terr.Code)).Inc()
		*notices = append(*notices, transcriptionNotice(terr))
		return "", false
	}

	e.metrics.ProviderCalls.WithLabelValues("stt", "ok").Inc()
	e.metrics.TranscriptionOutcomes.WithLabelValues("ok").Inc()
	return text, true
}

func transcriptionNotice(terr *speech.TranscriptionError) Notice {
	switch terr.Code {
	case speech.FailureNoAudio:
		return Notice{Code: NoticeNoAudio, Message: "No audio captured - please check your microphone"}
	case speech.FailureUnintelligible:
		return Notice{Code: NoticeUnintelligible, Message: "Could not understand audio - please speak more clearly"}
	case speech.FailureService:
		return Notice{Code: NoticeTranscriptionService, Message: "Speech recognition service error: " + terr.Detail}
	default:
		return Notice{Code: NoticeTranscriptionUnknown, Message: "Transcription failed: " + terr.Detail}
	}
}

func (e *Engine) language(s *session.Session) persona.Language {
	if lang, ok := e.catalog.Language(s.LanguageID); ok {
		return lang
	}
	return e.catalog.DefaultLanguage()
}

func (e *Engine) buildView(s *session.Session, notices []Notice) View {
	turns := s.Turns.Turns()
	views := make([]TurnView, 0, len(turns))
	for i, t := range turns {
		tv := TurnView{
			Index:   i,
			Role:    t.Role,
			Content: t.Content,
			Error:   t.Error,
		}
		if entry, ok := s.Audio.Get(i); ok {
			tv.AudioAvailable = true
			tv.AudioMIME = entry.Clip.MIMEType
		}
		views = append(views, tv)
	}

	_, voiceOK := e.catalog.Voice(s.VoiceID)
	return View{
		SessionID:        s.ID,
		PersonalityID:    s.PersonalityID,
		LanguageID:       s.LanguageID,
		VoiceID:          s.VoiceID,
		SpeechEnabled:    e.synthesizer != nil && voiceOK,
		VoiceInput:       e.transcriber != nil,
		PendingRecording: s.HasPendingRecording(),
		Turns:            views,
		Notices:          notices,
	}
}
