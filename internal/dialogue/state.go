package dialogue

import (
	"time"

	"voxtask/internal/oracle"
)

// Defaults for the clarification loop bounds.
const (
	DefaultMaxRetries     = 3
	DefaultMaxEmptyAudio  = 2
	DefaultMaxEmptyText   = 2
	DefaultTimeoutSeconds = 60
)

// EmptyKind distinguishes the two empty-input signals the upstream audio
// pipeline can report.
type EmptyKind string

const (
	EmptyAudio EmptyKind = "empty_audio"
	EmptyText  EmptyKind = "empty_text"
)

// State is the mutable record of one multi-turn interaction. Owned by a
// single controller goroutine; no locking.
type State struct {
	Active            bool
	RetryCount        int
	MaxRetries        int
	OriginalQuery     string
	Suggestion        string
	Messages          []oracle.Message
	StartTime         time.Time
	TimeoutSeconds    int
	EmptyAudioRetries int
	EmptyTextRetries  int
}

// newState returns an idle state with the default bounds.
func newState() State {
	return State{
		MaxRetries:     DefaultMaxRetries,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// reset returns the state to idle, keeping the configured bounds.
func (s *State) reset() {
	*s = State{
		MaxRetries:     s.MaxRetries,
		TimeoutSeconds: s.TimeoutSeconds,
	}
}

// expired reports whether the interaction outlived its clarification window.
func (s *State) expired(now time.Time) bool {
	if !s.Active {
		return false
	}
	return now.Sub(s.StartTime) > time.Duration(s.TimeoutSeconds)*time.Second
}

// appendUser records a user turn in the accumulated history.
func (s *State) appendUser(text string) {
	s.Messages = append(s.Messages, oracle.Message{Role: oracle.RoleUser, Text: text})
}

// appendSystem records a system (assistant) turn, e.g. a clarification
// question.
func (s *State) appendSystem(text string) {
	s.Messages = append(s.Messages, oracle.Message{Role: oracle.RoleSystem, Text: text})
}
