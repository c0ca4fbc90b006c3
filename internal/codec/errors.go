package codec

import "errors"

// Sentinel errors returned by Codec.Decode. Callers distinguish them with
// errors.Is.
var (
	// ErrMalformedBody is returned when the wire blob cannot be unpacked as
	// MessagePack, or is missing the outer event field.
	ErrMalformedBody = errors.New("codec: malformed body")

	// ErrUnresolvedEvent is returned when the decoded event name has never
	// been registered with the codec's resolver.
	ErrUnresolvedEvent = errors.New("codec: unresolved event name")
)
