// Package amqp implements the C4 Queue Connector: broker topology
// declaration, producer/consumer goroutines standing in for dedicated
// sibling processes, and ack feedback over Go channels instead of
// multiprocessing queues.
//
// Called by: supervisor.Supervisor (lifecycle), workerpool.Pool (Deliveries,
// Ack), dispatch.Dispatcher (Publish, via the Publisher interface)
// Calls: github.com/rabbitmq/amqp091-go, internal/codec, internal/dispatch,
// internal/envelope
package amqp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/kalmanolah/nite/internal/codec"
	"github.com/kalmanolah/nite/internal/dispatch"
	"github.com/kalmanolah/nite/internal/envelope"
)

const contentType = "application/msgpack"

// Connector owns the broker connection and the two goroutines that take the
// place of the dedicated producer and consumer processes: one drains an
// outbound channel and publishes, the other drains AMQP deliveries and acks.
type Connector struct {
	cfg   Config
	codec *codec.Codec

	mu              sync.Mutex
	boundEventNames []string
	running         bool
	closed          bool
	nodeIdentifier  string

	conn   *amqp091.Connection
	pubCh  *amqp091.Channel
	consCh *amqp091.Channel

	outbound   chan outboundMessage
	deliveries chan Delivery
	acks       chan uint64
	done       chan struct{}
	closeOnce  sync.Once
	fault      chan error
	wg         sync.WaitGroup
}

// New returns a Connector that has not yet dialed the broker. Call
// Initialize, then Start.
func New(cfg Config, c *codec.Codec) *Connector {
	return &Connector{cfg: cfg, codec: c}
}

// Initialize validates configuration and allocates the channels that stand
// in for per-process producer/consumer/ack queues. It does not touch the
// network.
func (c *Connector) Initialize() error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.outbound = make(chan outboundMessage, 64)
	c.deliveries = make(chan Delivery, 64)
	c.acks = make(chan uint64, 64)
	c.done = make(chan struct{})
	c.fault = make(chan error, 1)
	c.nodeIdentifier = c.resolveNodeIdentifier()
	return nil
}

// RegisterEventHook records eventName as one this node consumes. Wired as
// dispatch.Dispatcher's event hook, it is called once per event name the
// first time a listener is registered for it, before Start declares queues.
func (c *Connector) RegisterEventHook(eventName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boundEventNames = append(c.boundEventNames, eventName)
}

// NodeIdentifier returns the name this node's private queue is addressed by.
// Resolved once by Initialize and cached for the connector's lifetime.
func (c *Connector) NodeIdentifier() string {
	return c.nodeIdentifier
}

// resolveNodeIdentifier computes the node identifier: the configured value,
// or the local hostname when none was set.
func (c *Connector) resolveNodeIdentifier() string {
	if c.cfg.NodeIdentifier != "" {
		return c.cfg.NodeIdentifier
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}

// Faulted reports a fatal broker fault: a lost connection, or a publish or
// ack that the broker rejected at the protocol level. The supervisor
// forwards this channel through Supervisor.Faulted; cmd/nite selects on it
// alongside signal delivery once Start returns and stops the node if it
// ever fires.
func (c *Connector) Faulted() <-chan error {
	return c.fault
}

// shutdown closes done at most once, recording err (if any) as the reason.
// Called both by a detected fault and by a clean Close. A no-op if
// Initialize was never called.
func (c *Connector) shutdown(err error) {
	if c.done == nil {
		return
	}
	c.closeOnce.Do(func() {
		if err != nil {
			select {
			case c.fault <- err:
			default:
			}
		}
		close(c.done)
	})
}

// Start dials the broker, declares exchanges and queues, binds consumers for
// every event name registered so far, and spawns the producer and consumer
// goroutines. Returns ErrAlreadyRunning if called twice.
func (c *Connector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.done == nil {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	boundEventNames := append([]string(nil), c.boundEventNames...)
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("amqp: dial: %w", err)
	}
	c.conn = conn
	closeNotify := conn.NotifyClose(make(chan *amqp091.Error, 1))
	c.wg.Add(1)
	go c.watchConnection(closeNotify)

	pubCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp: open producer channel: %w", err)
	}
	c.pubCh = pubCh

	consCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp: open consumer channel: %w", err)
	}
	if err := c.declareTopology(consCh, boundEventNames); err != nil {
		return err
	}
	c.consCh = consCh

	deliveries, err := c.startConsuming(consCh, boundEventNames)
	if err != nil {
		return err
	}

	c.wg.Add(2)
	go c.runProducer()
	go c.runConsumer(deliveries)
	return nil
}

func (c *Connector) dial(ctx context.Context) (*amqp091.Connection, error) {
	uri := amqp091.URI{
		Scheme:   "amqp",
		Host:     c.cfg.Host,
		Port:     5672,
		Username: c.cfg.User,
		Password: c.cfg.Password,
		Vhost:    c.cfg.VHost,
	}
	if c.cfg.SSL {
		uri.Scheme = "amqps"
		uri.Port = 5671
	}
	dialer := amqp091.DefaultDial(c.cfg.ConnectTimeout())
	return amqp091.DialConfig(uri.String(), amqp091.Config{Dial: dialer})
}

// declareTopology declares the broker topology: two durable
// exchanges, a node-private queue bound to the topic exchange under its own
// name, and one durable queue per bound event name bound to the topic
// exchange under "event.<name>". For each bound event name the node-private
// queue is also bound to the fanout exchange under "event.<name>", so every
// node's private queue receives a copy of a GLOBAL_ALL publish.
func (c *Connector) declareTopology(ch *amqp091.Channel, boundEventNames []string) error {
	topic := c.cfg.ExchangeName + topicExchangeSuffix
	fanout := c.cfg.ExchangeName + fanoutExchangeSuffix

	if err := ch.ExchangeDeclare(topic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare topic exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(fanout, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare fanout exchange: %w", err)
	}

	nodeQueue := nodeQueueName(c.NodeIdentifier())
	if _, err := ch.QueueDeclare(nodeQueue, true, true, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare node queue: %w", err)
	}
	if err := ch.QueueBind(nodeQueue, nodeQueue, topic, false, nil); err != nil {
		return fmt.Errorf("amqp: bind node queue: %w", err)
	}

	for _, name := range boundEventNames {
		eq := eventQueueName(name)
		if _, err := ch.QueueDeclare(eq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("amqp: declare event queue %s: %w", eq, err)
		}
		if err := ch.QueueBind(eq, eq, topic, false, nil); err != nil {
			return fmt.Errorf("amqp: bind event queue %s to topic: %w", eq, err)
		}
		if err := ch.QueueBind(nodeQueue, eq, fanout, false, nil); err != nil {
			return fmt.Errorf("amqp: bind node queue to fanout for %s: %w", eq, err)
		}
	}
	return nil
}

// startConsuming opens one consumer per bound event queue plus the node
// queue and fans their deliveries into a single channel.
func (c *Connector) startConsuming(ch *amqp091.Channel, boundEventNames []string) (<-chan amqp091.Delivery, error) {
	var sources []<-chan amqp091.Delivery

	for _, name := range boundEventNames {
		d, err := ch.Consume(eventQueueName(name), "", false, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("amqp: consume event queue %s: %w", name, err)
		}
		sources = append(sources, d)
	}

	nodeDeliveries, err := ch.Consume(nodeQueueName(c.NodeIdentifier()), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("amqp: consume node queue: %w", err)
	}
	sources = append(sources, nodeDeliveries)

	merged := make(chan amqp091.Delivery)
	for _, src := range sources {
		go fanIn(src, merged, c.done)
	}
	return merged, nil
}

// watchConnection reports the connection closing as a fault, unless the
// close was our own doing (done already closed first).
func (c *Connector) watchConnection(closeNotify <-chan *amqp091.Error) {
	defer c.wg.Done()
	select {
	case err, ok := <-closeNotify:
		if ok && err != nil {
			c.shutdown(fmt.Errorf("amqp: connection closed: %w", err))
		}
	case <-c.done:
	}
}

func fanIn(src <-chan amqp091.Delivery, dst chan<- amqp091.Delivery, done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- msg:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// Publish implements dispatch.Publisher by handing the envelope to the
// producer goroutine. It never blocks on the network.
func (c *Connector) Publish(ctx context.Context, env *envelope.Envelope, demographic dispatch.Demographic) error {
	select {
	case c.outbound <- outboundMessage{env: env, demographic: demographic}:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliveries returns the channel workerpool.Pool drains.
func (c *Connector) Deliveries() <-chan Delivery {
	return c.deliveries
}

// Ack queues delivery tag for acknowledgement by the consumer goroutine.
func (c *Connector) Ack(tag uint64) {
	select {
	case c.acks <- tag:
	case <-c.done:
	}
}

func (c *Connector) runProducer() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.outbound:
			if err := c.publish(msg); err != nil {
				c.shutdown(fmt.Errorf("amqp: publish: %w", err))
				return
			}
		}
	}
}

// publish returns nil both on success and for message-level problems
// (unroutable demographic, encode failure) that are dropped rather than
// retried; a non-nil error means the broker itself rejected the publish and
// is treated as a fatal connection fault by runProducer.
func (c *Connector) publish(msg outboundMessage) error {
	rt, err := resolveRoute(msg.env.EventName, msg.demographic)
	if err != nil {
		return nil
	}
	body, err := c.codec.Encode(msg.env)
	if err != nil {
		return nil
	}

	publishing := amqp091.Publishing{
		ContentType:   contentType,
		Body:          body,
		MessageId:     msg.env.UUID,
		ReplyTo:       nodeQueueName(c.NodeIdentifier()),
		CorrelationId: msg.env.ReplyToUUID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout())
	defer cancel()
	return c.pubCh.PublishWithContext(ctx, c.cfg.ExchangeName+rt.exchangeSuffix, rt.routingKey, false, false, publishing)
}

func (c *Connector) runConsumer(deliveries <-chan amqp091.Delivery) {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case tag := <-c.acks:
			if err := c.consCh.Ack(tag, false); err != nil {
				c.shutdown(fmt.Errorf("amqp: ack: %w", err))
				return
			}
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			env, err := c.codec.Decode(msg.Body)
			if err != nil {
				// Malformed body or unresolved event name: skip the ack and
				// leave the delivery for the broker's own redelivery policy.
				// No explicit reject - a Nack(requeue=false) here would
				// discard it outright instead.
				continue
			}
			env.Source = strings.TrimPrefix(msg.ReplyTo, nodeQueuePrefix)
			env.ReplyToUUID = msg.CorrelationId

			select {
			case c.deliveries <- Delivery{Envelope: env, Tag: msg.DeliveryTag}:
			case <-c.done:
				return
			}
		}
	}
}

// Close signals both goroutines to stop, waits for them, then tears down the
// channel and connection. Idempotent: calling it after a fault already
// closed down is a no-op beyond that.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.shutdown(nil)
	c.wg.Wait()

	if c.pubCh != nil {
		_ = c.pubCh.Close()
	}
	if c.consCh != nil {
		_ = c.consCh.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
