package assistant

import "github.com/CodeCubCA/voicechat/internal/chat"

// Notice codes surfaced to the UI. Transcription codes mirror the speech
// taxonomy; the rest cover degraded features and bad selections.
const (
	NoticeNoAudio              = "no_audio"
	NoticeUnintelligible       = "unintelligible"
	NoticeTranscriptionService = "service_error"
	NoticeTranscriptionUnknown = "unknown"
	NoticeSynthesisUnavailable = "synthesis_unavailable"
	NoticeVoiceInputDisabled   = "voice_input_unavailable"
	NoticeInvalidSelection     = "invalid_selection"
)

// Notice is a transient, per-pass message; notices are part of the returned
// view and never stored on the session.
type Notice struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	TurnIndex int    `json:"turn_index,omitempty"`
}

// TurnView is one rendered turn plus the availability of its cached audio.
type TurnView struct {
	Index          int       `json:"index"`
	Role           chat.Role `json:"role"`
	Content        string    `json:"content"`
	Error          bool      `json:"error,omitempty"`
	AudioAvailable bool      `json:"audio_available"`
	AudioMIME      string    `json:"audio_mime,omitempty"`
}

// View is the complete snapshot handed to the UI after an event has been
// processed and the session state is stable.
type View struct {
	SessionID        string     `json:"session_id"`
	PersonalityID    string     `json:"personality_id"`
	LanguageID       string     `json:"language_id"`
	VoiceID          string     `json:"voice_id"`
	SpeechEnabled    bool       `json:"speech_enabled"`
	VoiceInput       bool       `json:"voice_input"`
	PendingRecording bool       `json:"pending_recording"`
	Turns            []TurnView `json:"turns"`
	Notices          []Notice   `json:"notices,omitempty"`
}
