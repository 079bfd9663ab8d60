package viewstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"bookapp/internal/models"
	"bookapp/internal/remote"
)

// MapSnapshot is the bookstore map read model
type MapSnapshot struct {
	Bookstores []models.BookstoreLocation
	IsLoading  bool
	Status     Status
}

// MapState loads bookstore locations from the remote store
type MapState struct {
	container
	stores remote.Bookstores

	mu       sync.RWMutex
	snapshot MapSnapshot
}

// NewMapState builds the container. stores may be nil when no remote store
// is configured; every operation then reports an error.
func NewMapState(parent context.Context, stores remote.Bookstores, logger *zap.Logger) *MapState {
	return &MapState{
		container: newContainer(parent, logger),
		stores:    stores,
		snapshot:  MapSnapshot{Status: Idle()},
	}
}

func (s *MapState) Snapshot() MapSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if len(s.snapshot.Bookstores) > 0 {
		snap.Bookstores = make([]models.BookstoreLocation, len(s.snapshot.Bookstores))
		copy(snap.Bookstores, s.snapshot.Bookstores)
	}
	return snap
}

func (s *MapState) update(fn func(*MapSnapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.mu.Unlock()
	s.notify()
}

func (s *MapState) run(action string, fn func(ctx context.Context) error) {
	s.update(func(snap *MapSnapshot) {
		snap.IsLoading = true
		snap.Status = Loading()
	})

	var err error
	if s.stores == nil {
		err = errors.New("bookstore map is not available offline")
	} else {
		err = fn(s.ctx)
	}
	if err != nil {
		s.logger.Error("Bookstore operation failed", zap.String("action", action), zap.Error(err))
		s.update(func(snap *MapSnapshot) {
			snap.IsLoading = false
			snap.Status = Failed(fmt.Sprintf("Error %s: %v", action, err))
		})
		return
	}
	s.update(func(snap *MapSnapshot) {
		snap.IsLoading = false
		snap.Status = Success()
	})
}

// Load fetches every bookstore
func (s *MapState) Load() {
	s.run("loading bookstores", func(ctx context.Context) error {
		stores, err := s.stores.ListBookstores(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.snapshot.Bookstores = stores
		s.mu.Unlock()
		return nil
	})
}

// AddBookstore stores a new location and reloads the list
func (s *MapState) AddBookstore(loc models.BookstoreLocation) {
	s.run("adding bookstore", func(ctx context.Context) error {
		if _, err := s.stores.AddBookstore(ctx, loc); err != nil {
			return err
		}
		stores, err := s.stores.ListBookstores(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.snapshot.Bookstores = stores
		s.mu.Unlock()
		return nil
	})
}
