package config

import "github.com/kalmanolah/nite/internal/queue/amqp"

// QueueConnectorConfig translates the parsed AMQP section into the shape
// the connector constructor expects.
func (c *Config) QueueConnectorConfig() amqp.Config {
	return amqp.Config{
		Host:                  c.Queue.AMQP.Host,
		User:                  c.Queue.AMQP.User,
		Password:              c.Queue.AMQP.Password,
		VHost:                 c.Queue.AMQP.VirtualHost,
		ExchangeName:          c.Queue.AMQP.ExchangeName,
		ConnectTimeoutSeconds: c.Queue.AMQP.ConnectTimeoutSeconds,
		SSL:                   c.Queue.AMQP.SSL,
		NodeIdentifier:        c.Queue.NodeIdentifier,
		WorkerProcesses:       c.Event.WorkerProcesses,
	}
}
