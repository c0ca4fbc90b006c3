// Package supervisor wires together the dispatcher, queue connector, and
// worker pool and drives them through the node's startup and shutdown
// ordering.
//
// Startup: connector Initialize, dispatcher goes live, connector Start
// (declares topology for every event name registered by module
// collaborators before this point), worker pool starts draining it.
// Shutdown reverses: pool stops taking new deliveries, then the connector
// closes its channel and connection.
//
// Called by: cmd/nite
// Calls: internal/dispatch, internal/queue/amqp, internal/workerpool,
// internal/codec, internal/config, pkg/logging
package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalmanolah/nite/internal/codec"
	"github.com/kalmanolah/nite/internal/config"
	"github.com/kalmanolah/nite/internal/dispatch"
	"github.com/kalmanolah/nite/internal/envelope"
	"github.com/kalmanolah/nite/internal/queue/amqp"
	"github.com/kalmanolah/nite/internal/workerpool"
	"github.com/kalmanolah/nite/pkg/logging"
)

// Supervisor owns one node's core subsystems for its whole process
// lifetime, except for the connector, which Reload replaces.
type Supervisor struct {
	cfg    *config.Config
	logger *logging.Logger
	codec  *codec.Codec

	dispatcher *dispatch.Dispatcher

	mu        sync.Mutex
	connector *amqp.Connector
	pool      *workerpool.Pool
}

// New builds a Supervisor. Its Dispatcher is ready for module
// collaborators to call Register on; nothing is live until Start runs.
func New(cfg *config.Config, logger *logging.Logger) *Supervisor {
	c := codec.New(codec.NewResolver())
	d := dispatch.New(c)
	connector := amqp.New(cfg.QueueConnectorConfig(), c)

	d.SetPublisher(connector)
	d.SetEventHook(connector.RegisterEventHook)

	return &Supervisor{
		cfg:        cfg,
		logger:     logger,
		codec:      c,
		dispatcher: d,
		connector:  connector,
	}
}

// Dispatcher returns the node's event registry, for module collaborators to
// register listeners on before Start.
func (s *Supervisor) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Faulted reports the current connector's broker-fault channel. A caller
// (cmd/nite) selects on this alongside signal delivery and stops the node if
// it ever fires, matching a connection or channel fault propagating upward
// and the supervisor terminating the node. Re-read after every Reload: the
// connector, and so the channel behind it, is replaced each time.
func (s *Supervisor) Faulted() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connector.Faulted()
}

// Start freezes the registry, brings the connector up, and starts the
// worker pool.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connector.Initialize(); err != nil {
		return fmt.Errorf("supervisor: initialize connector: %w", err)
	}
	s.dispatcher.MarkLive()

	if err := s.connector.Start(ctx); err != nil {
		return fmt.Errorf("supervisor: start connector: %w", err)
	}

	s.pool = workerpool.New(s.connector, s.dispatcher, s.cfg.Event.WorkerProcesses, workerpool.WithDropFunc(s.onDrop))
	s.pool.Start(ctx)

	s.logger.Info("node started, %d worker(s)", s.pool.WorkerCount())
	return nil
}

// Stop drains and closes the worker pool, then the connector.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	if s.pool != nil {
		s.pool.Stop()
	}
	if err := s.connector.Close(); err != nil {
		s.logger.Error("closing connector: %v", err)
	}
	s.logger.Info("node stopped")
}

// Reload stops the current connector and worker pool and starts a fresh
// connector carrying the same event bindings, the equivalent of a SIGHUP.
// Registered listeners are untouched; only the broker-facing half of the
// node restarts.
func (s *Supervisor) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("reloading")
	s.stopLocked()

	s.connector = amqp.New(s.cfg.QueueConnectorConfig(), s.codec)
	s.dispatcher.SetPublisher(s.connector)
	s.dispatcher.SetEventHook(s.connector.RegisterEventHook)
	for _, name := range s.codec.Resolver().KnownNames() {
		s.connector.RegisterEventHook(name)
	}

	if err := s.connector.Initialize(); err != nil {
		return fmt.Errorf("supervisor: reinitialize connector: %w", err)
	}
	if err := s.connector.Start(ctx); err != nil {
		return fmt.Errorf("supervisor: restart connector: %w", err)
	}

	s.pool = workerpool.New(s.connector, s.dispatcher, s.cfg.Event.WorkerProcesses, workerpool.WithDropFunc(s.onDrop))
	s.pool.Start(ctx)
	s.logger.Info("node reloaded, %d worker(s)", s.pool.WorkerCount())
	return nil
}

func (s *Supervisor) onDrop(env *envelope.Envelope, err error) {
	s.logger.Event("drop", env.EventName, env.UUID, err)
}
