package rag

import (
	"sync"

	"github.com/google/uuid"
)

const DefaultMaxHistory = 2

// Exchange is one completed user/assistant round, the unit of history.
type Exchange struct {
	UserText      string `json:"user_text"`
	AssistantText string `json:"assistant_text"`
}

// SessionStore keeps a bounded in-memory conversation history per session.
// It is process-scoped: sessions are created on first use and live until the
// process exits. Appends are serialized by the store mutex so overlapping
// requests on the same session never lose an exchange.
type SessionStore struct {
	mu       sync.Mutex
	limit    int
	sessions map[string][]Exchange
}

func NewSessionStore(limit int) *SessionStore {
	if limit <= 0 {
		limit = DefaultMaxHistory
	}
	return &SessionStore{
		limit:    limit,
		sessions: make(map[string][]Exchange),
	}
}

// NewSessionID generates a fresh opaque session identifier.
func (s *SessionStore) NewSessionID() string {
	return uuid.New().String()
}

// GetHistory returns the exchanges for a session, oldest first. An unknown
// session id is an implicitly new session and yields an empty history.
func (s *SessionStore) GetHistory(sessionID string) []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[sessionID]
	out := make([]Exchange, len(history))
	copy(out, history)
	return out
}

// Clear forgets a session's history. Clearing an unknown session is a no-op.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
}

// Append records one exchange and truncates from the oldest end so the
// session never holds more than the configured limit.
func (s *SessionStore) Append(sessionID, userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[sessionID], Exchange{
		UserText:      userText,
		AssistantText: assistantText,
	})
	if len(history) > s.limit {
		history = history[len(history)-s.limit:]
	}
	s.sessions[sessionID] = history
}
