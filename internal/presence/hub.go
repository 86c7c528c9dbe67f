// Package presence routes live events to connected users. A Hub maps a user
// identifier to zero or more subscribers (one per open connection) and fans
// events out to all of them.
//
// Delivery is strictly best-effort: publishing never blocks the caller, a
// subscriber with a full buffer simply misses the event, and a user with no
// subscribers receives nothing. Durable state (messages, notifications) is
// always written before anything is published here, so a missed event is
// recovered by polling on reconnect.
package presence

import "sync"

// Live event names pushed to connected users. Payloads mirror the
// corresponding store records.
const (
	EventMessageReceived = "message-received"
	EventMessageSentAck  = "message-sent-ack"
	EventThreadRead      = "messages-marked-read"
)

// Event is the envelope written to live channels.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// subscriberBuffer bounds how many undelivered events a single connection may
// queue before further publishes to it are dropped.
const subscriberBuffer = 32

// Subscriber is one live delivery target for a user. Events arrive on C()
// until Unsubscribe closes it.
type Subscriber struct {
	userID string
	ch     chan Event
}

// UserID returns the user this subscriber delivers to.
func (s *Subscriber) UserID() string { return s.userID }

// C returns the receive side of the subscriber's event channel. The channel
// is closed on Unsubscribe.
func (s *Subscriber) C() <-chan Event { return s.ch }

// Hub is an in-process registry of live subscribers keyed by user ID. Safe
// for concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new delivery target for userID and returns it. The
// caller owns the subscriber and must Unsubscribe when the connection ends.
func (h *Hub) Subscribe(userID string) *Subscriber {
	s := &Subscriber{userID: userID, ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[userID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes a delivery target and closes its channel. It is safe
// to call more than once; only the first call has an effect. Removing a
// target never interrupts an in-flight durable write elsewhere.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	set, ok := h.subs[s.userID]
	if ok {
		if _, present := set[s]; present {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.userID)
			}
			close(s.ch)
		}
	}
	h.mu.Unlock()
}

// Publish fans ev out to every current subscriber of userID without
// blocking. Subscribers whose buffers are full are skipped (at-most-once per
// channel). It returns the number of subscribers that accepted the event.
func (h *Hub) Publish(userID string, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs[userID] {
		select {
		case s.ch <- ev:
			delivered++
		default:
			// Slow consumer: drop rather than stall the sender.
		}
	}
	return delivered
}

// Connections reports how many live subscribers userID currently has.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
