package httpapi

import "sync"

// Broadcaster fans session-change signals out to event-stream subscribers.
// Signals carry no payload; subscribers re-fetch the session on wakeup, so a
// burst of changes coalesces into a single refresh per subscriber.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan struct{}]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers for change signals on one session. The returned cancel
// function must be called when the subscriber goes away.
func (b *Broadcaster) Subscribe(sessionID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	subs := b.subscribers[sessionID]
	if subs == nil {
		subs = make(map[chan struct{}]struct{})
		b.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if subs := b.subscribers[sessionID]; subs != nil {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subscribers, sessionID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish signals every subscriber of the session. Sends never block: a
// subscriber with a signal already pending simply keeps its single pending
// signal.
func (b *Broadcaster) Publish(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[sessionID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
