package rag

import (
	"context"
	"fmt"
)

// Pipeline is the single entry point the HTTP layer consumes: resolve the
// session, run the tool-orchestrated generation, persist the exchange.
type Pipeline struct {
	sessions     *SessionStore
	orchestrator *Orchestrator
}

func NewPipeline(sessions *SessionStore, orchestrator *Orchestrator) *Pipeline {
	return &Pipeline{
		sessions:     sessions,
		orchestrator: orchestrator,
	}
}

// Query answers one user question. An empty sessionID starts a new session;
// the id actually used is always returned so the caller can continue it.
func (p *Pipeline) Query(ctx context.Context, text, sessionID string) (string, []string, string, error) {
	if sessionID == "" {
		sessionID = p.sessions.NewSessionID()
	}

	history := p.sessions.GetHistory(sessionID)

	answer, sources, err := p.orchestrator.Answer(ctx, text, history)
	if err != nil {
		return "", nil, sessionID, fmt.Errorf("failed to answer query: %w", err)
	}

	p.sessions.Append(sessionID, text, answer)

	return answer, sources, sessionID, nil
}

// ClearSession drops a session's conversation history. The next query on the
// same id starts from a blank context.
func (p *Pipeline) ClearSession(sessionID string) {
	p.sessions.Clear(sessionID)
}
