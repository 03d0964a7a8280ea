package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Personality is one selectable assistant profile. The system prompt is
// prepended to every generation request while the personality is active.
type Personality struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	SystemPrompt string `yaml:"system_prompt" json:"-"`
	Description  string `yaml:"description" json:"description"`
	Emoji        string `yaml:"emoji" json:"emoji"`
}

// Language pairs a display name with the BCP-47 tag sent to the speech
// providers.
type Language struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Tag  string `yaml:"tag" json:"tag"`
}

type EngineTier string

const (
	EngineStandard EngineTier = "standard"
	EngineNeural   EngineTier = "neural"
)

// Voice is one synthesis voice. Neural indicates the provider offers the
// neural engine tier for this voice; otherwise synthesis falls back to the
// standard tier.
type Voice struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Language string `yaml:"language" json:"language"`
	Neural   bool   `yaml:"neural" json:"neural"`
}

// Engine returns the best available tier for the voice.
func (v Voice) Engine() EngineTier {
	if v.Neural {
		return EngineNeural
	}
	return EngineStandard
}

// Catalog holds the enumerated personality, language and voice options.
// Selections are plain table lookups; there is no dispatch hierarchy.
type Catalog struct {
	Personalities []Personality `yaml:"personalities"`
	Languages     []Language    `yaml:"languages"`
	Voices        []Voice       `yaml:"voices"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Personalities: []Personality{
			{
				ID:           "general",
				Name:         "General Assistant",
				SystemPrompt: "You are a helpful, friendly, and knowledgeable AI assistant. You provide clear, accurate, and thoughtful responses to help users with their questions and tasks.",
				Description:  "A balanced, helpful assistant for general purposes",
				Emoji:        "🤖",
			},
			{
				ID:           "study",
				Name:         "Study Buddy",
				SystemPrompt: "You are an encouraging and patient study buddy. You help students understand concepts, break down complex topics, create study plans, explain difficult material in simple terms, and provide motivation. You use examples, analogies, and step-by-step explanations to make learning easier and more engaging.",
				Description:  "Your personal tutor for learning and academic support",
				Emoji:        "📖",
			},
			{
				ID:           "fitness",
				Name:         "Fitness Coach",
				SystemPrompt: "You are an enthusiastic and motivating fitness coach. You provide workout advice, create personalized exercise plans, offer nutrition tips, track progress, and encourage healthy habits. You focus on proper form, safety, and sustainable fitness goals. You're supportive and help users stay motivated on their fitness journey.",
				Description:  "Your personal trainer for fitness and wellness goals",
				Emoji:        "🏋️",
			},
			{
				ID:           "gaming",
				Name:         "Gaming Coach",
				SystemPrompt: "You are an experienced and strategic gaming coach. You provide gameplay tips, strategies, character builds, meta analysis, and help players improve their skills. You're knowledgeable about various games, esports tactics, and competitive play. You offer constructive feedback and help gamers level up their performance.",
				Description:  "Your expert guide for gaming strategies and improvement",
				Emoji:        "🎮",
			},
		},
		Languages: []Language{
			{ID: "english", Name: "English", Tag: "en-US"},
			{ID: "french", Name: "French", Tag: "fr-FR"},
			{ID: "spanish", Name: "Spanish", Tag: "es-ES"},
			{ID: "mandarin", Name: "Mandarin", Tag: "zh-CN"},
			// Cantonese (Traditional Chinese, Hong Kong).
			{ID: "cantonese", Name: "Cantonese", Tag: "yue-Hant-HK"},
		},
		Voices: []Voice{
			{ID: "aria", Name: "Aria", Language: "en-US", Neural: true},
			{ID: "matthew", Name: "Matthew", Language: "en-US", Neural: true},
			{ID: "joey", Name: "Joey", Language: "en-US"},
			{ID: "lea", Name: "Léa", Language: "fr-FR", Neural: true},
			{ID: "mathieu", Name: "Mathieu", Language: "fr-FR"},
			{ID: "lucia", Name: "Lucia", Language: "es-ES", Neural: true},
			{ID: "enrique", Name: "Enrique", Language: "es-ES"},
			{ID: "zhiyu", Name: "Zhiyu", Language: "zh-CN", Neural: true},
			{ID: "hiujin", Name: "Hiujin", Language: "yue-Hant-HK", Neural: true},
		},
	}
}

// Load returns the default catalog, overridden by the YAML file at path when
// path is non-empty. Override files replace whole sections: a file that lists
// personalities keeps the default languages and voices.
func Load(path string) (*Catalog, error) {
	cat := Default()
	if strings.TrimSpace(path) == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	if len(override.Personalities) > 0 {
		cat.Personalities = override.Personalities
	}
	if len(override.Languages) > 0 {
		cat.Languages = override.Languages
	}
	if len(override.Voices) > 0 {
		cat.Voices = override.Voices
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) validate() error {
	if len(c.Personalities) == 0 {
		return fmt.Errorf("catalog has no personalities")
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("catalog has no languages")
	}
	for _, p := range c.Personalities {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.SystemPrompt) == "" {
			return fmt.Errorf("personality %q missing id or system prompt", p.Name)
		}
	}
	for _, l := range c.Languages {
		if strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.Tag) == "" {
			return fmt.Errorf("language %q missing id or tag", l.Name)
		}
	}
	return nil
}

// Personality looks up a personality by ID; the first entry is the default.
func (c *Catalog) Personality(id string) (Personality, bool) {
	for _, p := range c.Personalities {
		if p.ID == id {
			return p, true
		}
	}
	return Personality{}, false
}

// DefaultPersonality returns the first catalog entry.
func (c *Catalog) DefaultPersonality() Personality { return c.Personalities[0] }

// Language looks up a language by ID.
func (c *Catalog) Language(id string) (Language, bool) {
	for _, l := range c.Languages {
		if l.ID == id {
			return l, true
		}
	}
	return Language{}, false
}

// DefaultLanguage returns the first catalog entry.
func (c *Catalog) DefaultLanguage() Language { return c.Languages[0] }

// Voice looks up a voice by ID.
func (c *Catalog) Voice(id string) (Voice, bool) {
	for _, v := range c.Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// VoicesForLanguage lists the voices available for a BCP-47 tag, in catalog
// order.
func (c *Catalog) VoicesForLanguage(tag string) []Voice {
	var out []Voice
	for _, v := range c.Voices {
		if strings.EqualFold(v.Language, tag) {
			out = append(out, v)
		}
	}
	return out
}

// DefaultVoice returns the first voice for the tag, or false when the
// language has no voices.
func (c *Catalog) DefaultVoice(tag string) (Voice, bool) {
	voices := c.VoicesForLanguage(tag)
	if len(voices) == 0 {
		return Voice{}, false
	}
	return voices[0], true
}
