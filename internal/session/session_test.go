package session

import (
	"testing"
	"time"

	"github.com/CodeCubCA/voicechat/internal/chat"
	"github.com/CodeCubCA/voicechat/internal/speech"
)

func TestSubmitRecordingDeduplicates(t *testing.T) {
	s := newSession("s1", "general", "english", "aria")

	if !s.SubmitRecording([]byte("recording-a")) {
		t.Fatal("first submit rejected")
	}
	if !s.HasPendingRecording() {
		t.Fatal("slot empty after submit")
	}

	// Same bytes again: duplicate render pass, must be a no-op.
	if s.SubmitRecording([]byte("recording-a")) {
		t.Fatal("duplicate submit accepted")
	}

	b, ok := s.TakePendingRecording()
	if !ok || string(b) != "recording-a" {
		t.Fatalf("TakePendingRecording = %q, %v", b, ok)
	}
	if s.HasPendingRecording() {
		t.Fatal("slot not cleared by take")
	}

	// The fingerprint survives consumption, so the same bytes stay dropped.
	if s.SubmitRecording([]byte("recording-a")) {
		t.Fatal("re-submit after take accepted")
	}
	// Different bytes are a new capture.
	if !s.SubmitRecording([]byte("recording-b")) {
		t.Fatal("new recording rejected")
	}
}

func TestTakePendingRecordingEmpty(t *testing.T) {
	s := newSession("s1", "general", "english", "aria")
	if _, ok := s.TakePendingRecording(); ok {
		t.Fatal("take on empty slot reported a recording")
	}
}

func TestSessionReset(t *testing.T) {
	s := newSession("s1", "general", "english", "aria")
	s.Turns.Append(chat.Turn{Role: chat.RoleUser, Content: "hi"})
	s.Audio.Put(0, ClipEntry{VoiceID: "aria", LanguageCode: "en-US", Clip: speech.Clip{Audio: []byte("x")}})
	s.SubmitRecording([]byte("recording"))

	s.Reset()

	if s.Turns.Len() != 0 {
		t.Fatalf("turns after reset = %d", s.Turns.Len())
	}
	if s.Audio.Len() != 0 {
		t.Fatalf("cache after reset = %d", s.Audio.Len())
	}
	if s.HasPendingRecording() {
		t.Fatal("pending slot not idle after reset")
	}
	// Fingerprint cleared: the same recording is processable again.
	if !s.SubmitRecording([]byte("recording")) {
		t.Fatal("recording rejected after reset")
	}
	// Selections survive.
	if s.PersonalityID != "general" || s.VoiceID != "aria" {
		t.Fatalf("selections changed by reset: %+v", s)
	}
}

func TestAudioCacheMatches(t *testing.T) {
	c := NewAudioCache()
	c.Put(1, ClipEntry{VoiceID: "aria", LanguageCode: "en-US", Clip: speech.Clip{Audio: []byte("a")}})

	if !c.Matches(1, "aria", "en-US") {
		t.Fatal("matching entry not found")
	}
	if c.Matches(1, "lea", "en-US") || c.Matches(1, "aria", "fr-FR") {
		t.Fatal("stale selection reported as match")
	}
	if c.Matches(2, "aria", "en-US") {
		t.Fatal("missing index reported as match")
	}

	// Replacement keeps one entry per index.
	c.Put(1, ClipEntry{VoiceID: "lea", LanguageCode: "fr-FR", Clip: speech.Clip{Audio: []byte("b")}})
	if c.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", c.Len())
	}
	e, _ := c.Get(1)
	if e.VoiceID != "lea" {
		t.Fatalf("entry not replaced: %+v", e)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("general", "english", "aria")

	got, err := m.Get(s.ID)
	if err != nil || got.ID != s.ID {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d", m.ActiveCount())
	}

	if _, err := m.Get("missing"); err != ErrNotFound {
		t.Fatalf("Get(missing) err = %v", err)
	}

	ended, err := m.End(s.ID)
	if err != nil || ended.Status != StatusEnded {
		t.Fatalf("End = %+v, %v", ended, err)
	}
	if _, err := m.Get(s.ID); err != ErrNotFound {
		t.Fatalf("Get after End err = %v", err)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after end = %d", m.ActiveCount())
	}
}

func TestManagerExpiresInactive(t *testing.T) {
	m := NewManager(10 * time.Millisecond)
	s := m.Create("general", "english", "aria")

	var expired []*Session
	m.SetExpireHook(func(s *Session) { expired = append(expired, s) })

	s.LastActivityAt = time.Now().UTC().Add(-time.Minute)
	m.expireInactive()

	if len(expired) != 1 || expired[0].ID != s.ID {
		t.Fatalf("expired = %+v", expired)
	}
	if _, err := m.Get(s.ID); err != ErrNotFound {
		t.Fatalf("expired session still retrievable: %v", err)
	}
}

func TestTouchConcurrentWithJanitor(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("general", "english", "aria")

	// Activity stamping and expiry both run under the manager lock; this
	// must stay clean under the race detector.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = m.Touch(s.ID)
		}
	}()
	for i := 0; i < 200; i++ {
		m.expireInactive()
	}
	<-done

	if _, err := m.Get(s.ID); err != nil {
		t.Fatalf("touched session expired: %v", err)
	}
}

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint([]byte("same bytes"))
	b := Fingerprint([]byte("same bytes"))
	c := Fingerprint([]byte("other bytes"))
	if a != b {
		t.Fatal("fingerprint not stable for identical bytes")
	}
	if a == c {
		t.Fatal("fingerprint collision between distinct inputs")
	}
}
