// Package realtime provides a process local, topic scoped
// publish/subscribe registry.
package realtime

import "sync"

// A Payload is a single event delivered to subscribers.
type Payload struct {
	Event string
	Data  any
}

// subscriptionBuffer is the number of payloads a subscriber may fall behind
// before it is cancelled.
const subscriptionBuffer = 16

// A Registry fans payloads out to the current subscribers of a topic.
// Subscribers of the same topic observe publishes in the same order.
// The zero value is not usable, use NewRegistry.
type Registry[K comparable] struct {
	mu     sync.Mutex
	topics map[K]map[*Subscription[K]]chan<- Payload
}

func NewRegistry[K comparable]() *Registry[K] {
	return &Registry[K]{
		topics: make(map[K]map[*Subscription[K]]chan<- Payload),
	}
}

// Subscribe adds a subscriber to the topic. The returned subscription
// receives every payload published to the topic until it is cancelled.
func (r *Registry[K]) Subscribe(topic K) *Subscription[K] {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Payload, subscriptionBuffer)
	sub := &Subscription[K]{
		registry: r,
		topic:    topic,
		C:        ch,
	}
	subs := r.topics[topic]
	if subs == nil {
		subs = make(map[*Subscription[K]]chan<- Payload)
		r.topics[topic] = subs
	}
	subs[sub] = ch
	return sub
}

// Publish delivers the payload to every current subscriber of the topic,
// including any subscription held by the publisher itself. Publish does not
// block on slow subscribers; a subscriber whose buffer is full is cancelled
// rather than allowed to observe a gap in the stream.
func (r *Registry[K]) Publish(topic K, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub, ch := range r.topics[topic] {
		select {
		case ch <- Payload{Event: event, Data: data}:
		default:
			// too slow, unsubscribe
			r.cancelLocked(sub)
		}
	}
}

func (r *Registry[K]) cancelLocked(sub *Subscription[K]) {
	subs := r.topics[sub.topic]
	ch, ok := subs[sub]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(r.topics, sub.topic)
	}
	close(ch)
}

// A Subscription is one subscriber's membership of a topic.
type Subscription[K comparable] struct {
	registry *Registry[K]
	topic    K
	// The channel on which payloads are received. Closed when the
	// subscription is cancelled.
	C <-chan Payload
}

// Cancel removes the subscription from its topic and closes C.
// Cancel is idempotent.
func (s *Subscription[K]) Cancel() {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.registry.cancelLocked(s)
}
