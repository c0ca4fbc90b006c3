// Package workerpool implements the C5 Worker Pool: a fixed set of sibling
// goroutines draining the queue connector's consumer channel, invoking
// dispatch, and feeding acks back.
//
// Called by: supervisor.Supervisor (lifecycle)
// Calls: internal/queue/amqp.Connector (Deliveries, Ack), internal/dispatch
// (Handle)
package workerpool

import (
	"context"
	"runtime"
	"sync"

	"github.com/kalmanolah/nite/internal/envelope"
	"github.com/kalmanolah/nite/internal/queue/amqp"
)

// Source is the subset of queue/amqp.Connector a worker needs: a channel of
// deliveries to drain and a way to ack the ones it finished handling.
type Source interface {
	Deliveries() <-chan amqp.Delivery
	Ack(tag uint64)
}

// Handler invokes the registered listeners for one envelope. Satisfied by
// *dispatch.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, env *envelope.Envelope) error
}

// DropFunc observes a delivery that failed handling and was not acked,
// leaving it for broker redelivery. Optional; set via WithDropFunc.
type DropFunc func(env *envelope.Envelope, err error)

// Pool runs a fixed number of worker goroutines, each independently draining
// the same Source and Handler. There is no work-stealing or per-worker
// partitioning: every goroutine races for the next delivery.
type Pool struct {
	source  Source
	handler Handler
	count   int
	onDrop  DropFunc

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithDropFunc installs a callback invoked whenever a delivery's handler
// returns an error and the message is left unacked.
func WithDropFunc(fn DropFunc) Option {
	return func(p *Pool) { p.onDrop = fn }
}

// New returns a Pool with count workers. count <= 0 defaults to the number
// of logical CPUs.
func New(source Source, handler Handler, count int, opts ...Option) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	p := &Pool{source: source, handler: handler, count: count}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerCount reports how many goroutines Start spawns.
func (p *Pool) WorkerCount() int {
	return p.count
}

// Start spawns the worker goroutines. Calling Start twice without an
// intervening Stop is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(ctx, stop)
	}
}

func (p *Pool) run(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case delivery, ok := <-p.source.Deliveries():
			if !ok {
				return
			}
			p.handle(ctx, delivery)
		}
	}
}

func (p *Pool) handle(ctx context.Context, delivery amqp.Delivery) {
	if err := p.handler.Handle(ctx, delivery.Envelope); err != nil {
		if p.onDrop != nil {
			p.onDrop(delivery.Envelope, err)
		}
		return
	}
	p.source.Ack(delivery.Tag)
}

// Stop signals every worker to exit and waits for them to drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
}
