// Package store provides the shared-state abstraction behind the
// session registry and per-session message queues. One implementation
// backs onto Redis for cross-worker deployments, the other onto local
// process memory for single-worker operation; both sit behind the
// same interface and are selected at startup.
package store

import (
	"context"

	"github.com/bifrotek/voicebridge/internal/model/session"
)

// Store is the session-state and message-queue contract shared by the
// webhook relay and the streaming dispatcher.
type Store interface {
	// SaveSession persists session metadata. Re-saving the same id
	// overwrites.
	SaveSession(ctx context.Context, s session.Session) error

	// GetSession returns the session and true when present. Absence is
	// not an error.
	GetSession(ctx context.Context, sessionID string) (session.Session, bool, error)

	// DeleteSession removes session metadata and its queue.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessionIDs returns ids of all currently stored sessions.
	ListSessionIDs(ctx context.Context) ([]string, error)

	// AppendMessage enqueues a message at the tail of the session's
	// queue.
	AppendMessage(ctx context.Context, sessionID string, msg session.Message) error

	// DrainMessages removes and returns all queued messages for the
	// session in append order. Draining an empty queue yields nil.
	// Removal happens before the caller delivers anything, so delivery
	// is at most once.
	DrainMessages(ctx context.Context, sessionID string) ([]session.Message, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
