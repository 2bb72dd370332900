package orm

import (
	"context"
	"sync"
)

// Built-in lifecycle events fired by Save.
const (
	EventSaving = "saving"
	EventSaved  = "saved"
)

// Listener reacts to a lifecycle event. For halting events a false return
// cancels the operation; for the others the result is ignored.
type Listener func(ctx context.Context, m *Model) bool

// EventName builds the dispatcher key for event on a record type.
func EventName(event, typeName string) string {
	return "orm." + event + ": " + typeName
}

// Dispatcher keeps listeners per event key.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]Listener)}
}

// Listen appends l to the listeners of name.
func (d *Dispatcher) Listen(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], l)
}

// HasListeners reports whether name has at least one listener.
func (d *Dispatcher) HasListeners(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[name]) > 0
}

// Until calls listeners in order and stops at the first one returning false.
// It returns false when the event was vetoed.
func (d *Dispatcher) Until(ctx context.Context, name string, m *Model) bool {
	for _, l := range d.snapshot(name) {
		if !l(ctx, m) {
			return false
		}
	}
	return true
}

// Dispatch calls every listener and ignores their results.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, m *Model) {
	for _, l := range d.snapshot(name) {
		l(ctx, m)
	}
}

func (d *Dispatcher) snapshot(name string) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners[name]...)
}
