// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// messageBuffer is the number of events held for a receiver before events
// are dropped for it.
const messageBuffer = 100

// subscriber is a registered receiver. An empty topic list receives every
// event.
type subscriber struct {
	ch     chan string
	topics []string
}

func (s subscriber) wants(event string) bool {
	if len(s.topics) == 0 {
		return true
	}

	for _, topic := range s.topics {
		if strings.HasPrefix(event, topic) {
			return true
		}
	}

	return false
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	m  map[string]subscriber
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]subscriber),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.m {
		delete(evt.m, id)
		close(sub.ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used to
// receive events. Topics are event prefixes such as "chain:" or "worker:"
// and limit the events delivered on the channel.
func (evt *Events) Acquire(id string, topics ...string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.m[id]; exists {
		return sub.ch
	}

	sub := subscriber{
		ch:     make(chan string, messageBuffer),
		topics: topics,
	}
	evt.m[id] = sub

	return sub.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(sub.ch)
	return nil
}

// Send signals a message to every registered channel interested in it. Send
// will not block waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.m {
		if !sub.wants(s) {
			continue
		}

		select {
		case sub.ch <- s:
		default:
		}
	}
}
