package session

import (
	"context"
	"sync"
)

// Workspace holds the single active review session of a reviewer.
type Workspace struct {
	cfg Config

	mu      sync.Mutex
	current *Session
}

func NewWorkspace(cfg Config) *Workspace {
	return &Workspace{cfg: cfg}
}

// Switch closes the active session, cancelling its pending canonical
// write, and opens one for jobID.
func (w *Workspace) Switch(ctx context.Context, jobID string) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil {
		w.current.Close()
		w.current = nil
	}
	s, err := Open(ctx, jobID, w.cfg)
	if err != nil {
		return nil, err
	}
	w.current = s
	return s, nil
}

// Current returns the active session, or nil.
func (w *Workspace) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close closes the active session.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.current.Close()
		w.current = nil
	}
}
