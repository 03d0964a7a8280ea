package session

import (
	"github.com/CodeCubCA/voicechat/internal/speech"
)

// ClipEntry is one cached synthesis artifact, stamped with the voice and
// language it was produced for.
type ClipEntry struct {
	VoiceID      string
	LanguageCode string
	Clip         speech.Clip
}

// AudioCache maps turn index to its synthesized audio. At most one entry per
// index: an entry is reused while the selection stamp matches and replaced by
// exactly one fresh synthesis after a voice or language change. Failures are
// never stored.
type AudioCache struct {
	entries map[int]ClipEntry
}

func NewAudioCache() *AudioCache {
	return &AudioCache{entries: make(map[int]ClipEntry)}
}

func (c *AudioCache) Get(index int) (ClipEntry, bool) {
	e, ok := c.entries[index]
	return e, ok
}

// Matches reports whether index holds a clip synthesized with the given
// selection.
func (c *AudioCache) Matches(index int, voiceID, languageCode string) bool {
	e, ok := c.entries[index]
	return ok && e.VoiceID == voiceID && e.LanguageCode == languageCode
}

func (c *AudioCache) Put(index int, e ClipEntry) {
	c.entries[index] = e
}

func (c *AudioCache) Len() int { return len(c.entries) }

func (c *AudioCache) Reset() {
	c.entries = make(map[int]ClipEntry)
}
