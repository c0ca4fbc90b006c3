// Package envelope provides the core message structure carried between
// NITE nodes and between the dispatch core and its listeners.
//
// An Envelope wraps a semantic event with identity, timing, versioning, and
// reply-correlation metadata. The payload itself is an opaque string-keyed
// map whose schema is the concern of the concrete event kind; the envelope
// only carries the metadata needed for routing and dispatch.
//
// Called by: dispatch.Dispatcher, codec.Codec, queue/amqp.Connector
// Calls: github.com/google/uuid
package envelope

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope wire version produced by New.
const CurrentVersion = 1

// Envelope carries a single semantic event between dispatch, codec, and the
// queue connector.
//
// Source is never set by the emitting code; it is populated by the consumer
// from the broker's reply_to property when the envelope arrives from a
// remote node. ReplyToUUID is populated the same way, from the correlation_id
// property, and is never part of the msgpack-encoded body (see
// codec.Codec.Encode).
type Envelope struct {
	UUID        string                 // 32 lowercase hex chars, no separators
	Timestamp   time.Time              // creation time, UTC, microsecond resolution
	Version     uint                   // wire format version, currently 1
	Source      string                 // origin node identifier; set only by the consumer
	ReplyToUUID string                 // uuid of the envelope this one answers, if any
	EventName   string                 // fully qualified dotted name, also the routing key
	Payload     map[string]interface{} // opaque event-specific data
}

// New creates an envelope for a locally originated event. uuid and timestamp
// are generated here; Source and ReplyToUUID are left empty, matching the
// invariant that emitting code never sets them.
func New(eventName string, payload map[string]interface{}) *Envelope {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Envelope{
		UUID:      newUUID(),
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Version:   CurrentVersion,
		EventName: eventName,
		Payload:   payload,
	}
}

// NewReply creates an envelope answering original, stamping ReplyToUUID.
// The caller is still responsible for addressing the reply (e.g. back to
// original.Source) when triggering it.
func NewReply(original *Envelope, eventName string, payload map[string]interface{}) *Envelope {
	env := New(eventName, payload)
	env.ReplyToUUID = original.UUID
	return env
}

// IsReply reports whether this envelope answers a prior envelope.
func (e *Envelope) IsReply() bool {
	return e.ReplyToUUID != ""
}

// Clone returns a copy of the envelope with its own Payload map, so fields
// and top-level payload keys can be changed independently. Payload values
// themselves are not copied: nested maps or slices are shared with e.
func (e *Envelope) Clone() *Envelope {
	clone := *e
	if e.Payload != nil {
		clone.Payload = make(map[string]interface{}, len(e.Payload))
		for k, v := range e.Payload {
			clone.Payload[k] = v
		}
	}
	return &clone
}

func newUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
