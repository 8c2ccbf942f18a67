package flow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/planeat/planeat/internal/store"
)

// Sessions resolves and persists the continuity handle for a phone number.
type Sessions struct {
	store store.Store

	// NowFunc is replaceable in tests to control the freshness window.
	NowFunc func() time.Time
}

// NewSessions creates a session adapter over the given store.
func NewSessions(s store.Store) *Sessions {
	return &Sessions{store: s, NowFunc: time.Now}
}

// GetOrCreate returns the session id for phone and whether it resumes a prior
// one. A prior session is resumed only when the user row exists and the
// conversation row is fresh within SessionWindow and carries a session id.
// Any storage error falls open to a fresh session.
func (s *Sessions) GetOrCreate(phone string) (string, bool) {
	user, err := s.store.GetUser(phone)
	if err != nil {
		slog.Error("Sessions.GetOrCreate: user lookup failed, starting new session", "phone", phone, "error", err)
		return uuid.NewString(), false
	}
	if user == nil {
		slog.Debug("Sessions.GetOrCreate: unknown user, starting new session", "phone", phone)
		return uuid.NewString(), false
	}

	conv, err := s.store.GetConversation(phone)
	if err != nil {
		slog.Error("Sessions.GetOrCreate: conversation lookup failed, starting new session", "phone", phone, "error", err)
		return uuid.NewString(), false
	}
	if conv != nil && conv.SessionID != nil && *conv.SessionID != "" &&
		s.NowFunc().Sub(conv.LastMessageAt) <= SessionWindow {
		slog.Debug("Sessions.GetOrCreate: resuming session", "phone", phone, "sessionID", *conv.SessionID)
		return *conv.SessionID, true
	}

	slog.Debug("Sessions.GetOrCreate: starting new session", "phone", phone)
	return uuid.NewString(), false
}

// Save upserts the user row then the conversation's session id. Callers skip
// it when the session id did not change.
func (s *Sessions) Save(phone, sessionID string) error {
	if err := s.store.EnsureUser(phone); err != nil {
		return fmt.Errorf("failed to ensure user before saving session: %w", err)
	}
	if err := s.store.SaveSession(phone, sessionID); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.Debug("Sessions.Save: session saved", "phone", phone, "sessionID", sessionID)
	return nil
}
