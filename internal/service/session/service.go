// Package session implements the session registry and message-queue
// routing shared by the webhook relay and the streaming dispatcher.
package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	model "github.com/bifrotek/voicebridge/internal/model/session"
	"github.com/bifrotek/voicebridge/internal/store"
)

// Service routes session metadata and queued messages between the
// external store and local process memory.
//
// The serving layer may run as several worker processes without shared
// memory, so a webhook can arrive on a different worker than the one
// that registered the session. The external store is the only
// cross-worker channel, but it is optional: without it the service
// degrades to single-worker correctness instead of failing.
type Service struct {
	local    *store.Memory
	external store.Store // nil when not configured
}

// NewService builds the registry. external may be nil.
func NewService(external store.Store) *Service {
	return &Service{
		local:    store.NewMemory(),
		external: external,
	}
}

// Connected reports whether an external store is in use.
func (s *Service) Connected() bool {
	return s.external != nil
}

// Register stores session metadata in the external store when
// reachable and in local memory unconditionally, so the registering
// worker always has an immediate consistent view. Re-registering the
// same id overwrites.
func (s *Service) Register(ctx context.Context, sess model.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	if s.external != nil {
		if err := s.external.SaveSession(ctx, sess); err != nil {
			log.Printf("[session] external save failed for %s, local copy only: %v", sess.ID, err)
		}
	}

	return s.local.SaveSession(ctx, sess)
}

// Lookup checks local memory first, then the external store,
// backfilling local memory on an external hit. An unknown session is
// (zero, false, nil), not an error: callers treat it as
// valid-but-unenriched.
func (s *Service) Lookup(ctx context.Context, sessionID string) (model.Session, bool, error) {
	if sess, ok, err := s.local.GetSession(ctx, sessionID); err == nil && ok {
		return sess, true, nil
	}

	if s.external == nil {
		return model.Session{}, false, nil
	}

	sess, ok, err := s.external.GetSession(ctx, sessionID)
	if err != nil {
		return model.Session{}, false, err
	}
	if !ok {
		return model.Session{}, false, nil
	}

	if err := s.local.SaveSession(ctx, sess); err != nil {
		log.Printf("[session] local backfill failed for %s: %v", sessionID, err)
	}
	return sess, true, nil
}

// ActiveSessionIDs returns every currently registered session id,
// merging the external store's view with local memory. Used for
// broadcast fan-out.
func (s *Service) ActiveSessionIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	if s.external != nil {
		externalIDs, err := s.external.ListSessionIDs(ctx)
		if err != nil {
			log.Printf("[session] external session listing failed: %v", err)
		} else {
			for _, id := range externalIDs {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	localIDs, err := s.local.ListSessionIDs(ctx)
	if err != nil {
		return ids, err
	}
	for _, id := range localIDs {
		if _, dup := seen[id]; !dup {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Enqueue appends a message to the destination session's queue via the
// external store when connected, else the local queue. Timestamps and
// ids are assigned here if missing.
func (s *Service) Enqueue(ctx context.Context, sessionID string, msg model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if s.external != nil {
		if err := s.external.AppendMessage(ctx, sessionID, msg); err != nil {
			log.Printf("[session] external enqueue failed for %s, using local queue: %v", sessionID, err)
			return s.local.AppendMessage(ctx, sessionID, msg)
		}
		return nil
	}
	return s.local.AppendMessage(ctx, sessionID, msg)
}

// Drain removes and returns all pending messages for the session in
// enqueue order. Messages are gone from the queue once this returns;
// delivery after that point is the caller's problem (at most once).
func (s *Service) Drain(ctx context.Context, sessionID string) ([]model.Message, error) {
	if s.external != nil {
		drained, err := s.external.DrainMessages(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		// Pick up anything queued locally before the external store
		// came into play or during an external outage.
		localDrained, localErr := s.local.DrainMessages(ctx, sessionID)
		if localErr == nil && len(localDrained) > 0 {
			drained = append(drained, localDrained...)
		}
		return drained, nil
	}
	return s.local.DrainMessages(ctx, sessionID)
}
