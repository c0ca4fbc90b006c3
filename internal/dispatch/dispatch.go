// Package dispatch implements the typed-event registry and synchronous,
// priority-ordered listener invocation at the heart of a NITE node.
//
// Register populates the registry during the startup phase; once the
// dispatcher is marked live (Start), the registry becomes read-only and is
// safe for workers to read without locking out registration races. Trigger
// decides whether an event stays on this node (LOCAL, handled in-thread) or
// is handed to the queue connector for broker delivery. Handle walks the
// registered listeners for one event in HIGHEST -> LOWEST, then
// registration-order.
//
// Called by: cmd/nite (module collaborators registering listeners),
// workerpool.Pool (Handle), supervisor.Supervisor (lifecycle)
// Calls: codec.Codec (LOCAL round-trip), the wired Publisher (remote trigger)
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalmanolah/nite/internal/codec"
	"github.com/kalmanolah/nite/internal/envelope"
)

// Listener handles one delivered envelope. Returning an error marks the
// overall Handle call a failure and stops remaining listeners from running.
type Listener func(ctx context.Context, env *envelope.Envelope) error

// Publisher hands a non-local trigger off to the queue connector. It is
// implemented by queue/amqp.Connector; Dispatcher only depends on this
// narrow interface to avoid importing the connector package.
type Publisher interface {
	Publish(ctx context.Context, env *envelope.Envelope, demographic Demographic) error
}

// Dispatcher is the C3 Event Dispatch Core: a registry of
// event-name -> priority-bucket -> ordered listener list, plus the
// Trigger/Handle operations that drive it.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string]map[Priority][]Listener
	live      bool
	codec     *codec.Codec
	publisher Publisher
	onFirst   func(eventName string)
}

// New creates a Dispatcher. c is used to round-trip LOCAL triggers through
// the wire codec before handing them to Handle, so a listener observes the
// same envelope shape whether the trigger stayed local or came off the
// broker; it must not be nil.
func New(c *codec.Codec) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string]map[Priority][]Listener),
		codec:     c,
	}
}

// SetPublisher wires the connector used for non-local Trigger calls.
func (d *Dispatcher) SetPublisher(p Publisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publisher = p
}

// SetEventHook installs the callback invoked the first time an event name is
// registered, regardless of priority. The queue connector uses this to add
// the name to its bound-events list before Start.
func (d *Dispatcher) SetEventHook(hook func(eventName string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFirst = hook
}

// MarkLive freezes the registry against further Register calls. Called by
// the lifecycle supervisor once module collaborators have finished
// registering listeners and the connector is about to start.
func (d *Dispatcher) MarkLive() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live = true
}

// Register adds listener under priority for the event identified by
// identifier (see EventName). Returns ErrAlreadyLive if called after
// MarkLive.
func (d *Dispatcher) Register(identifier interface{}, listener Listener, priority ...Priority) error {
	p := DefaultPriority
	if len(priority) > 0 {
		p = priority[0]
	}
	name := EventName(identifier)

	d.mu.Lock()
	if d.live {
		d.mu.Unlock()
		return fmt.Errorf("%w: event %q", ErrAlreadyLive, name)
	}

	buckets, exists := d.listeners[name]
	if !exists {
		buckets = make(map[Priority][]Listener, len(priorityOrder))
		d.listeners[name] = buckets
	}
	buckets[p] = append(buckets[p], listener)
	hook := d.onFirst
	d.mu.Unlock()

	if d.codec != nil {
		d.codec.Resolver().MarkKnown(name)
	}
	if !exists && hook != nil {
		hook(name)
	}
	return nil
}

// Trigger fires event for demographic. LOCAL triggers round-trip through the
// codec and call Handle in-thread, bypassing the broker entirely; any other
// demographic is handed to the wired Publisher. A reply's correlation is
// carried on env.ReplyToUUID (see envelope.NewReply), not as a separate
// argument here.
func (d *Dispatcher) Trigger(ctx context.Context, env *envelope.Envelope, demographic Demographic) error {
	if demographic.IsLocal() {
		local := env
		if d.codec != nil {
			body, err := d.codec.Encode(env)
			if err != nil {
				return fmt.Errorf("dispatch: encode local trigger: %w", err)
			}
			decoded, err := d.codec.Decode(body)
			if err != nil {
				return fmt.Errorf("dispatch: decode local trigger: %w", err)
			}
			decoded.Source = env.Source
			decoded.ReplyToUUID = env.ReplyToUUID
			local = decoded
		}
		return d.Handle(ctx, local)
	}

	d.mu.RLock()
	publisher := d.publisher
	d.mu.RUnlock()

	if publisher == nil {
		return fmt.Errorf("dispatch: trigger %s to %s: no publisher configured", env.EventName, demographic)
	}
	return publisher.Publish(ctx, env, demographic)
}

// Handle invokes every listener registered for env.EventName, in
// HIGHEST -> LOWEST priority order and registration order within a priority.
// It returns ErrNoListeners if no listener is registered, or a wrapped
// ErrListenerFailed if a listener returns an error; remaining listeners do
// not run in that case.
func (d *Dispatcher) Handle(ctx context.Context, env *envelope.Envelope) error {
	d.mu.RLock()
	buckets, ok := d.listeners[env.EventName]
	if !ok {
		d.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrNoListeners, env.EventName)
	}

	// Copy the listener slices we're about to run under the read lock so we
	// never invoke user code while holding it.
	ordered := make([][]Listener, len(priorityOrder))
	for i, p := range priorityOrder {
		ordered[i] = append([]Listener(nil), buckets[p]...)
	}
	d.mu.RUnlock()

	for _, bucket := range ordered {
		for _, listener := range bucket {
			if err := listener(ctx, env); err != nil {
				return fmt.Errorf("%w: event %s uuid %s: %v", ErrListenerFailed, env.EventName, env.UUID, err)
			}
		}
	}
	return nil
}
