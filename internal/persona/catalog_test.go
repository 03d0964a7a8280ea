package persona

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cat := Default()
	if got := len(cat.Personalities); got != 4 {
		t.Fatalf("personalities = %d, want 4", got)
	}
	if cat.DefaultPersonality().ID != "general" {
		t.Fatalf("default personality = %q", cat.DefaultPersonality().ID)
	}
	if got := len(cat.Languages); got != 5 {
		t.Fatalf("languages = %d, want 5", got)
	}
	if cat.DefaultLanguage().Tag != "en-US" {
		t.Fatalf("default language tag = %q", cat.DefaultLanguage().Tag)
	}
	if lang, ok := cat.Language("cantonese"); !ok || lang.Tag != "yue-Hant-HK" {
		t.Fatalf("cantonese lookup = %+v, %v", lang, ok)
	}
}

func TestVoiceLookup(t *testing.T) {
	cat := Default()
	voices := cat.VoicesForLanguage("en-US")
	if len(voices) != 3 {
		t.Fatalf("en-US voices = %d, want 3", len(voices))
	}
	v, ok := cat.DefaultVoice("fr-FR")
	if !ok || v.ID != "lea" {
		t.Fatalf("fr-FR default voice = %+v, %v", v, ok)
	}
	if v.Engine() != EngineNeural {
		t.Fatalf("lea engine = %q, want neural", v.Engine())
	}
	if v, _ := cat.Voice("joey"); v.Engine() != EngineStandard {
		t.Fatalf("joey engine = %q, want standard", v.Engine())
	}
	if _, ok := cat.DefaultVoice("xx-XX"); ok {
		t.Fatal("unknown language reported a default voice")
	}
}

func TestLoadOverrideReplacesSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.yaml")
	data := `personalities:
  - id: pirate
    name: Pirate
    system_prompt: "You are a pirate."
    description: "Arr."
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cat.Personalities) != 1 || cat.Personalities[0].ID != "pirate" {
		t.Fatalf("override not applied: %+v", cat.Personalities)
	}
	// Untouched sections keep defaults.
	if len(cat.Languages) != 5 {
		t.Fatalf("languages = %d, want 5", len(cat.Languages))
	}
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.yaml")
	data := `personalities:
  - id: broken
    name: Broken
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted personality without system prompt")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if len(cat.Personalities) != 4 {
		t.Fatalf("personalities = %d, want 4", len(cat.Personalities))
	}
}
