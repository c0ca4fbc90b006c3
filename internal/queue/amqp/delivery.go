package amqp

import (
	"github.com/kalmanolah/nite/internal/dispatch"
	"github.com/kalmanolah/nite/internal/envelope"
)

// Delivery pairs a decoded envelope with the broker delivery tag needed to
// acknowledge it once a listener has finished handling it.
type Delivery struct {
	Envelope *envelope.Envelope
	Tag      uint64
}

// outboundMessage is what Publish hands to the producer goroutine. A reply's
// correlation id travels on env.ReplyToUUID, set by envelope.NewReply; there
// is no separate reply-target field here.
type outboundMessage struct {
	env         *envelope.Envelope
	demographic dispatch.Demographic
}
