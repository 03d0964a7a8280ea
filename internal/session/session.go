package session

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/CodeCubCA/voicechat/internal/chat"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Session is the full state of one interactive conversation: the turn log,
// the synthesized-audio cache, the pending-recording slot with its dedup
// fingerprint, and the active personality/language/voice selections.
//
// All mutation happens inside render passes, which the owning engine
// serializes with the session lock; there is never more than one pass over a
// session at a time.
type Session struct {
	ID        string    `json:"session_id"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	// LastActivityAt and Status are lifecycle fields guarded by the manager
	// lock; render passes never write them.
	LastActivityAt time.Time `json:"last_activity_at"`

	PersonalityID string `json:"personality_id"`
	LanguageID    string `json:"language_id"`
	VoiceID       string `json:"voice_id"`

	Turns *chat.Store `json:"-"`
	Audio *AudioCache `json:"-"`

	mu               sync.Mutex
	pendingRecording []byte
	lastFingerprint  uint64
	hasFingerprint   bool
}

func newSession(id, personalityID, languageID, voiceID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             id,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
		PersonalityID:  personalityID,
		LanguageID:     languageID,
		VoiceID:        voiceID,
		Turns:          chat.NewStore(),
		Audio:          NewAudioCache(),
	}
}

// Lock serializes render passes over the session.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Fingerprint derives the identity of a recording from its byte content.
func Fingerprint(b []byte) uint64 { return xxhash.Sum64(b) }

// SubmitRecording places a recording in the pending slot unless its
// fingerprint matches the last processed recording, in which case the submit
// is a duplicate of an already-seen capture and is dropped. The fingerprint
// is recorded immediately so re-submits of the same bytes stay no-ops even
// before the slot is consumed.
func (s *Session) SubmitRecording(b []byte) bool {
	fp := Fingerprint(b)
	if s.hasFingerprint && fp == s.lastFingerprint {
		return false
	}
	s.lastFingerprint = fp
	s.hasFingerprint = true
	s.pendingRecording = b
	return true
}

// TakePendingRecording empties the slot and returns its content. Callers must
// take the recording before invoking the transcriber so a failed transcription
// can never be retried by a later pass.
func (s *Session) TakePendingRecording() ([]byte, bool) {
	if s.pendingRecording == nil {
		return nil, false
	}
	b := s.pendingRecording
	s.pendingRecording = nil
	return b, true
}

// HasPendingRecording reports whether a recording awaits transcription.
func (s *Session) HasPendingRecording() bool { return s.pendingRecording != nil }

// Reset restores the session to its initial empty state: no turns, no cached
// audio, idle pending slot, no processed-recording fingerprint. Selections
// survive a reset.
func (s *Session) Reset() {
	s.Turns.Reset()
	s.Audio.Reset()
	s.pendingRecording = nil
	s.lastFingerprint = 0
	s.hasFingerprint = false
}
