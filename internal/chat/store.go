package chat

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Error marks assistant turns that carry a generation failure message
	// rather than a real reply. Error turns render in history but are
	// excluded from speech synthesis.
	Error bool `json:"error,omitempty"`
}

// Store is an append-only ordered log of turns for one session.
type Store struct {
	turns []Turn
}

func NewStore() *Store { return &Store{} }

// Append adds a turn at the end. Existing turns are never reordered or mutated.
func (s *Store) Append(t Turn) {
	s.turns = append(s.turns, t)
}

// Last returns the most recent turn, or false when the store is empty.
func (s *Store) Last() (Turn, bool) {
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}

func (s *Store) Len() int { return len(s.turns) }

// Turns returns a copy of the full turn sequence in chronological order.
func (s *Store) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Reset drops all turns.
func (s *Store) Reset() {
	s.turns = nil
}

// ContextWindow formats the last n turns as role-labeled lines for prompting,
// oldest first. A non-positive n yields an empty transcript.
func (s *Store) ContextWindow(n int) string {
	if n <= 0 || len(s.turns) == 0 {
		return ""
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, t := range s.turns[start:] {
		label := "User"
		if t.Role == RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
