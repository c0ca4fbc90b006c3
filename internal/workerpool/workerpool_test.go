package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kalmanolah/nite/internal/envelope"
	"github.com/kalmanolah/nite/internal/queue/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	deliveries chan amqp.Delivery

	mu     sync.Mutex
	acked  []uint64
	ackSig chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		deliveries: make(chan amqp.Delivery, 8),
		ackSig:     make(chan struct{}, 8),
	}
}

func (f *fakeSource) Deliveries() <-chan amqp.Delivery { return f.deliveries }

func (f *fakeSource) Ack(tag uint64) {
	f.mu.Lock()
	f.acked = append(f.acked, tag)
	f.mu.Unlock()
	f.ackSig <- struct{}{}
}

func (f *fakeSource) ackedTags() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.acked...)
}

type handlerFunc func(ctx context.Context, env *envelope.Envelope) error

func (h handlerFunc) Handle(ctx context.Context, env *envelope.Envelope) error { return h(ctx, env) }

func TestPoolAcksSuccessfullyHandledDeliveries(t *testing.T) {
	source := newFakeSource()
	handler := handlerFunc(func(context.Context, *envelope.Envelope) error { return nil })

	pool := New(source, handler, 2)
	pool.Start(context.Background())
	defer pool.Stop()

	source.deliveries <- amqp.Delivery{Envelope: envelope.New("ping", nil), Tag: 7}

	select {
	case <-source.ackSig:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ack")
	}
	assert.Equal(t, []uint64{7}, source.ackedTags())
}

func TestPoolDoesNotAckFailedDeliveries(t *testing.T) {
	source := newFakeSource()
	boom := errors.New("boom")
	var dropped *envelope.Envelope

	var mu sync.Mutex
	signal := make(chan struct{}, 1)
	handler := handlerFunc(func(context.Context, *envelope.Envelope) error { return boom })

	pool := New(source, handler, 1, WithDropFunc(func(env *envelope.Envelope, err error) {
		mu.Lock()
		dropped = env
		mu.Unlock()
		signal <- struct{}{}
	}))
	pool.Start(context.Background())
	defer pool.Stop()

	env := envelope.New("ping", nil)
	source.deliveries <- amqp.Delivery{Envelope: env, Tag: 3}

	select {
	case <-signal:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for drop callback")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, dropped)
	assert.Equal(t, env.UUID, dropped.UUID)
	assert.Empty(t, source.ackedTags())
}

func TestPoolDefaultsWorkerCountToNumCPU(t *testing.T) {
	pool := New(newFakeSource(), handlerFunc(func(context.Context, *envelope.Envelope) error { return nil }), 0)
	assert.Positive(t, pool.WorkerCount())
}

func TestPoolStopIsIdempotent(t *testing.T) {
	pool := New(newFakeSource(), handlerFunc(func(context.Context, *envelope.Envelope) error { return nil }), 1)
	pool.Start(context.Background())
	pool.Stop()
	assert.NotPanics(t, pool.Stop)
}
