package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Notifier broadcasts table change signals to watchers
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewNotifier creates an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers interest in a table. Signals are coalesced: a slow
// subscriber sees at most one pending signal. Call the returned func to stop.
func (n *Notifier) Subscribe(table string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	if n.subs[table] == nil {
		n.subs[table] = make(map[chan struct{}]struct{})
	}
	n.subs[table][ch] = struct{}{}
	n.mu.Unlock()

	return ch, func() {
		n.mu.Lock()
		delete(n.subs[table], ch)
		n.mu.Unlock()
	}
}

// Notify signals every subscriber of table without blocking
func (n *Notifier) Notify(table string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs[table] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch runs query now and after every change signal on table, sending each
// result to the returned channel. Query errors are logged and the watcher
// waits for the next change. The channel is closed once ctx is done.
func Watch[T any](ctx context.Context, n *Notifier, table string, query func(context.Context) (T, error), logger *zap.Logger) <-chan T {
	out := make(chan T, 1)
	changes, unsubscribe := n.Subscribe(table)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			result, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("Watch query failed", zap.String("table", table), zap.Error(err))
			} else {
				select {
				case out <- result:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
