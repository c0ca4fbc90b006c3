// Package codec converts between Envelope values and the MessagePack wire
// blob exchanged over the broker, and resolves wire event names against a
// registry of names known to this process.
//
// Wire format: a two-field outer object {event: <fqn>, data: <map>}. data
// carries the envelope's uuid/timestamp/version plus every payload key,
// flattened into one map. Source and ReplyToUUID never appear on the wire;
// they are stamped onto the decoded envelope by the consumer from broker
// message properties (see queue/amqp).
//
// Called by: queue/amqp.Connector (producer and consumer loops), dispatch
// (for the LOCAL trigger path)
// Calls: github.com/vmihailenco/msgpack/v5
package codec

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kalmanolah/nite/internal/envelope"
)

const timestampKey = "_uuid_ts"
const uuidKey = "_uuid"
const versionKey = "_version"

// wireMessage is the shape actually written to and read from the wire.
type wireMessage struct {
	Event string                 `msgpack:"event"`
	Data  map[string]interface{} `msgpack:"data"`
}

// Codec encodes envelopes to MessagePack and decodes them back, using a
// Resolver to recognise known event names.
type Codec struct {
	resolver *Resolver
}

// New creates a Codec backed by the given Resolver. A nil resolver is
// replaced with an empty one that resolves nothing.
func New(resolver *Resolver) *Codec {
	if resolver == nil {
		resolver = NewResolver()
	}
	return &Codec{resolver: resolver}
}

// Resolver returns the codec's event-name resolver.
func (c *Codec) Resolver() *Resolver {
	return c.resolver
}

// Encode serialises env into its MessagePack wire representation.
func (c *Codec) Encode(env *envelope.Envelope) ([]byte, error) {
	data := make(map[string]interface{}, len(env.Payload)+3)
	for k, v := range env.Payload {
		data[k] = v
	}
	data[uuidKey] = env.UUID
	data[timestampKey] = env.Timestamp.UTC().Format(time.RFC3339Nano)
	data[versionKey] = uint64(env.Version)

	msg := wireMessage{Event: env.EventName, Data: data}
	body, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", env.EventName, err)
	}
	return body, nil
}

// Decode rebuilds an Envelope from a MessagePack wire blob. Source and
// ReplyToUUID are left zero; the caller (the consumer loop) stamps them from
// broker message properties. ErrUnresolvedEvent is returned if the event
// name has never been registered with this codec's resolver.
func (c *Codec) Decode(body []byte) (*envelope.Envelope, error) {
	var msg wireMessage
	if err := msgpack.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if msg.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedBody)
	}
	if !c.resolver.IsKnown(msg.Event) {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedEvent, msg.Event)
	}

	data := msg.Data
	if data == nil {
		data = map[string]interface{}{}
	}

	env := &envelope.Envelope{
		EventName: msg.Event,
		Payload:   make(map[string]interface{}, len(data)),
	}

	for k, v := range data {
		switch k {
		case uuidKey:
			if s, ok := v.(string); ok {
				env.UUID = s
			}
		case timestampKey:
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					env.Timestamp = ts
				}
			}
		case versionKey:
			env.Version = uint(toUint64(v))
		default:
			env.Payload[k] = v
		}
	}

	return env, nil
}

// toUint64 normalises the handful of numeric types msgpack may produce for
// an unsigned integer field decoded into interface{}.
func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case uint8:
		return uint64(n)
	case int8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case int16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case int32:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}

// DecodePayload unmarshals env's payload into target via a msgpack
// round-trip, giving listeners typed access to an otherwise opaque map
// without the envelope itself needing to know about concrete event types.
func DecodePayload(env *envelope.Envelope, target interface{}) error {
	body, err := msgpack.Marshal(env.Payload)
	if err != nil {
		return fmt.Errorf("codec: marshal payload for %s: %w", env.EventName, err)
	}
	if err := msgpack.Unmarshal(body, target); err != nil {
		return fmt.Errorf("codec: unmarshal payload for %s: %w", env.EventName, err)
	}
	return nil
}
