package stream

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Callback handles an emitted event. A returned error is logged and does not
// stop delivery to the remaining callbacks.
type Callback func(Event) error

// CallbackID identifies a registered callback for removal.
type CallbackID string

type callbackEntry struct {
	id CallbackID
	fn Callback
}

// registry maps event names to callbacks in registration order.
type registry struct {
	mu      sync.RWMutex
	entries map[string][]callbackEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string][]callbackEntry)}
}

func (r *registry) add(event string, fn Callback) CallbackID {
	id := CallbackID(uuid.NewString())

	r.mu.Lock()
	r.entries[event] = append(r.entries[event], callbackEntry{id: id, fn: fn})
	r.mu.Unlock()

	return id
}

func (r *registry) remove(event string, id CallbackID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[event]
	for i, e := range list {
		if e.id != id {
			continue
		}
		next := make([]callbackEntry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.entries, event)
		} else {
			r.entries[event] = next
		}
		return true
	}
	return false
}

// snapshot returns the callbacks for event. The returned slice is never
// mutated, so it can be iterated without holding the lock.
func (r *registry) snapshot(event string) []callbackEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[event]
}

// On registers cb for event and returns an ID for RemoveCallback.
// Callbacks for one event run sequentially in registration order. They may be
// invoked from the read goroutine, so they must not call Disconnect directly.
func (c *Client) On(event string, cb Callback) CallbackID {
	return c.callbacks.add(event, cb)
}

// RemoveCallback unregisters a callback. It reports whether it was found.
func (c *Client) RemoveCallback(event string, id CallbackID) bool {
	return c.callbacks.remove(event, id)
}

func (c *Client) emit(ev Event) {
	for _, e := range c.callbacks.snapshot(ev.Name) {
		if err := c.invoke(e, ev); err != nil {
			c.logger.Error("callback failed",
				"event", ev.Name,
				"callback", e.id,
				"error", err,
			)
		}
	}
}

func (c *Client) invoke(e callbackEntry, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.fn(ev)
}
