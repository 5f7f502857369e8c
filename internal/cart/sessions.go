package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Sessions owns one Store per browsing session. Carts are created empty on
// first use and restored from the snapshot store when one is configured.
type Sessions struct {
	mu        sync.Mutex
	carts     map[string]*Store
	snapshots SnapshotStore
	logger    zerolog.Logger
}

// NewSessions creates a session registry. snapshots may be nil.
func NewSessions(snapshots SnapshotStore, logger zerolog.Logger) *Sessions {
	return &Sessions{
		carts:     make(map[string]*Store),
		snapshots: snapshots,
		logger:    logger.With().Str("component", "cart-sessions").Logger(),
	}
}

// Get returns the cart for sessionID, creating or restoring it as needed.
// Snapshots are loaded without holding the registry lock; if two callers
// restore the same session at once, the first to register wins.
func (s *Sessions) Get(ctx context.Context, sessionID string) *Store {
	s.mu.Lock()
	store, ok := s.carts[sessionID]
	s.mu.Unlock()
	if ok {
		return store
	}

	store = s.restore(ctx, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.carts[sessionID]; ok {
		return existing
	}
	s.carts[sessionID] = store
	return store
}

func (s *Sessions) restore(ctx context.Context, sessionID string) *Store {
	if s.snapshots == nil {
		return New()
	}

	items, err := s.snapshots.Load(ctx, sessionID)
	switch {
	case err == nil:
		store := NewFromItems(items)
		s.logger.Debug().
			Str("session_id", sessionID).
			Int("lines", store.Len()).
			Msg("cart restored from snapshot")
		return store
	case !errors.Is(err, ErrSnapshotMiss):
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load cart snapshot")
	}
	return New()
}

// Persist writes the current cart of sessionID to the snapshot store. Failures
// are logged and never surface to the caller.
func (s *Sessions) Persist(ctx context.Context, sessionID string, store *Store) {
	if s.snapshots == nil {
		return
	}

	var err error
	if store.Len() == 0 {
		err = s.snapshots.Delete(ctx, sessionID)
	} else {
		err = s.snapshots.Save(ctx, sessionID, store.Items())
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to persist cart snapshot")
	}
}

// Drop forgets the cart of sessionID, including its snapshot.
func (s *Sessions) Drop(ctx context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.carts, sessionID)
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.snapshots.Delete(ctx, sessionID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to delete cart snapshot")
		}
	}
}
