package classify

import "sync"

// Notifier is a registry of pending wait handles keyed by correlation id.
// The result-topic consumer calls Notify when a worker announces completion,
// waking the matching wait loop ahead of its next scheduled poll. Polling
// remains the fallback, so a lost announcement costs latency, not
// correctness.
type Notifier struct {
	mu      sync.Mutex
	waiters map[string][]chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{waiters: make(map[string][]chan struct{})}
}

// Register returns a channel that receives one signal when the id is
// announced. The caller must Unregister when done waiting.
func (n *Notifier) Register(id string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.waiters[id] = append(n.waiters[id], ch)
	n.mu.Unlock()
	return ch
}

func (n *Notifier) Unregister(id string, ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	chans := n.waiters[id]
	for i, c := range chans {
		if c == ch {
			n.waiters[id] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(n.waiters[id]) == 0 {
		delete(n.waiters, id)
	}
}

// Notify wakes every waiter registered for id. Non-blocking: a waiter that
// already has a pending signal is not queued a second one.
func (n *Notifier) Notify(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.waiters[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
