// Package activity records what happens to books so that usage can be
// summarised later. Recording is best effort: callers log failures and
// carry on.
package activity

import (
	"context"
	"sort"
	"sync"
	"time"

	"bookapp/internal/models"
)

type Kind string

const (
	KindAdded      Kind = "added"
	KindUpdated    Kind = "updated"
	KindDeleted    Kind = "deleted"
	KindFavorited  Kind = "favorited"
	KindDownloaded Kind = "downloaded"
	KindSynced     Kind = "synced"
)

// Event is a single book activity
type Event struct {
	At     time.Time
	Kind   Kind
	BookID int64
	Title  string
	UserID string // provider uid, empty when signed out
}

// Recorder stores activity events and answers aggregate queries over them
type Recorder interface {
	Record(ctx context.Context, event Event) error
	// TopBooks returns the books with the most events of kind since the
	// given time, most active first
	TopBooks(ctx context.Context, kind Kind, limit int, since time.Time) ([]models.BookStat, error)
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Record(ctx context.Context, event Event) error { return nil }

func (Nop) TopBooks(ctx context.Context, kind Kind, limit int, since time.Time) ([]models.BookStat, error) {
	return nil, nil
}

func (Nop) Close() error { return nil }

// Memory keeps events in process
type Memory struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything recorded so far
func (m *Memory) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *Memory) TopBooks(ctx context.Context, kind Kind, limit int, since time.Time) ([]models.BookStat, error) {
	m.mu.RLock()
	byBook := make(map[int64]*models.BookStat)
	for _, e := range m.events {
		if e.Kind != kind || e.At.Before(since) {
			continue
		}
		stat, ok := byBook[e.BookID]
		if !ok {
			stat = &models.BookStat{BookID: e.BookID}
			byBook[e.BookID] = stat
		}
		stat.Title = e.Title
		stat.Count++
	}
	m.mu.RUnlock()

	stats := make([]models.BookStat, 0, len(byBook))
	for _, s := range byBook {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].BookID < stats[j].BookID
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

func (m *Memory) Close() error { return nil }
