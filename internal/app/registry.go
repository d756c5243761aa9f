package app

// SessionRepository tracks the single live session of each client
// (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Get(clientID string) (*Session, bool)
	// Replace installs s as the client's session and returns the one it displaced.
	Replace(clientID string, s *Session) *Session
	// Delete removes the client's session only if it is still s.
	Delete(clientID string, s *Session)
}

// SlotProvider hands out the history slot of a client.
type SlotProvider interface {
	Slot(clientID string) Slot
}
