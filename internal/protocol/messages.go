package protocol

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeTextSubmitted     MessageType = "text_submitted"
	TypeRecordingCaptured MessageType = "recording_captured"
	TypeSettingsChanged   MessageType = "settings_changed"
	TypeResetRequested    MessageType = "reset"
	TypeRefresh           MessageType = "refresh"
	TypeViewUpdate        MessageType = "view_update"
	TypeErrorEvent        MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// TextSubmitted carries one typed message from the input box.
type TextSubmitted struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

// RecordingCaptured carries one finished browser recording. Audio travels
// base64-encoded inside the JSON frame.
type RecordingCaptured struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	AudioBase64 string      `json:"audio_base64"`
	MIMEType    string      `json:"mime_type,omitempty"`
}

// Audio decodes the recording payload.
func (m RecordingCaptured) Audio() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(m.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio_base64: %w", err)
	}
	return b, nil
}

// SettingsChanged updates the personality/language/voice selections. Omitted
// fields keep the current value.
type SettingsChanged struct {
	Type          MessageType `json:"type"`
	SessionID     string      `json:"session_id"`
	PersonalityID string      `json:"personality_id,omitempty"`
	LanguageID    string      `json:"language_id,omitempty"`
	VoiceID       string      `json:"voice_id,omitempty"`
}

// ResetRequested clears the conversation history.
type ResetRequested struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// Refresh asks for a plain re-render of the current view.
type Refresh struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// ViewUpdate wraps the rendered view pushed after each processed event.
type ViewUpdate struct {
	Type MessageType `json:"type"`
	View any         `json:"view"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates one inbound websocket frame.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeTextSubmitted:
		var msg TextSubmitted
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid text_submitted")
		}
		return msg, nil
	case TypeRecordingCaptured:
		var msg RecordingCaptured
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.AudioBase64 == "" {
			return nil, errors.New("invalid recording_captured")
		}
		return msg, nil
	case TypeSettingsChanged:
		var msg SettingsChanged
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid settings_changed")
		}
		if msg.PersonalityID == "" && msg.LanguageID == "" && msg.VoiceID == "" {
			return nil, errors.New("settings_changed with no fields")
		}
		return msg, nil
	case TypeResetRequested:
		var msg ResetRequested
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid reset")
		}
		return msg, nil
	case TypeRefresh:
		var msg Refresh
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid refresh")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// MarshalServerMessage encodes one outbound frame.
func MarshalServerMessage(v any) ([]byte, error) {
	b, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal server message: %w", err)
	}
	return b, nil
}
