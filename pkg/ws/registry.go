package ws

import "sync"

// registry tracks active subscriptions and the handler table. Both are
// mutated from caller goroutines and read from the dispatch and
// reconnection goroutines, so all access goes through the mutex. A
// subscription stays registered until the caller explicitly unsubscribes,
// no matter how many reconnects happen underneath.
type registry struct {
	mu       sync.Mutex
	subs     map[string]Subscription
	handlers map[string]Handler
}

func newRegistry() *registry {
	return &registry{
		subs:     make(map[string]Subscription),
		handlers: make(map[string]Handler),
	}
}

// add registers a subscription; re-adding a topic replaces it.
func (r *registry) add(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.Topic] = sub
}

// remove deletes a topic. Returns true if the topic was registered.
func (r *registry) remove(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[topic]
	delete(r.subs, topic)
	return ok
}

// snapshot returns a copy of the current subscriptions for reconnection
// replay; iteration must never hold the lock while frames are written.
func (r *registry) snapshot() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

// size returns the number of registered subscriptions.
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// setHandler binds a handler to a message type or channel prefix,
// replacing any previous binding.
func (r *registry) setHandler(key string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = h
}

// handler looks up the handler for a message type or channel prefix.
func (r *registry) handler(key string) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[key]
	return h, ok
}
