package amqp

import (
	"fmt"

	"github.com/kalmanolah/nite/internal/dispatch"
)

const (
	topicExchangeSuffix  = "_topic"
	fanoutExchangeSuffix = "_fanout"
	nodeQueuePrefix      = "node."
	eventQueuePrefix     = "event."
)

// route describes where a published envelope lands on the broker.
type route struct {
	exchangeSuffix string
	routingKey     string
}

// resolveRoute maps a trigger demographic onto an exchange and routing key.
// GLOBAL_SINGLE publishes to the topic exchange under the event's shared
// queue, where exactly one bound consumer across the fleet wins delivery.
// GLOBAL_ALL publishes to the fanout exchange, which every node's private
// queue is bound to for that event, so every peer gets a copy. Node
// addresses the topic exchange directly at one node's private queue.
// LOCAL never reaches the broker and has no route.
func resolveRoute(eventName string, demographic dispatch.Demographic) (route, error) {
	switch demographic.Kind() {
	case dispatch.GlobalSingle:
		return route{exchangeSuffix: topicExchangeSuffix, routingKey: eventQueuePrefix + eventName}, nil
	case dispatch.GlobalAll:
		return route{exchangeSuffix: fanoutExchangeSuffix, routingKey: eventQueuePrefix + eventName}, nil
	case dispatch.Node:
		return route{exchangeSuffix: topicExchangeSuffix, routingKey: nodeQueuePrefix + demographic.NodeID()}, nil
	default:
		return route{}, fmt.Errorf("%w: %s", ErrInvalidDemographic, demographic)
	}
}

func nodeQueueName(nodeIdentifier string) string {
	return nodeQueuePrefix + nodeIdentifier
}

func eventQueueName(eventName string) string {
	return eventQueuePrefix + eventName
}
