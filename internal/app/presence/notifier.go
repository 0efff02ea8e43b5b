package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/domain"
)

// Change is one online/offline transition.
type Change struct {
	User   domain.UserID
	Status domain.PresenceStatus
	At     time.Time
}

type Listener func(Change)

// notifier is an unbounded FIFO drained by one goroutine. push is called
// under a shard lock, so queue order equals the per-user linearization
// order and an offline can never overtake a later online for the same user.
type notifier struct {
	mu        sync.Mutex
	queue     []Change
	listeners []Listener
	wake      chan struct{}
}

func newNotifier() *notifier {
	return &notifier{wake: make(chan struct{}, 1)}
}

func (n *notifier) subscribe(l Listener) {
	n.mu.Lock()
	n.listeners = append(n.listeners, l)
	n.mu.Unlock()
}

func (n *notifier) push(c Change) {
	n.mu.Lock()
	n.queue = append(n.queue, c)
	n.mu.Unlock()
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) drain() ([]Change, []Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	batch := n.queue
	n.queue = nil
	return batch, n.listeners
}

func (n *notifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.wake:
		}
		for {
			batch, listeners := n.drain()
			if len(batch) == 0 {
				break
			}
			for _, c := range batch {
				for _, l := range listeners {
					n.call(l, c)
				}
			}
		}
	}
}

func (n *notifier) call(l Listener, c Change) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("module", "app.presence").
				Str("user", string(c.User)).
				Interface("panic", rec).
				Msg("presence listener panicked")
		}
	}()
	l(c)
}
