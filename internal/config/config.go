// Package config loads a node's YAML configuration file, applies defaults,
// and validates the result before anything else in the process starts up.
//
// Called by: cmd/nite
// Calls: gopkg.in/yaml.v3
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of a node's YAML configuration, wrapped under the
// top-level "nite" key.
type Config struct {
	Queue   QueueConfig   `yaml:"queue"`
	Event   EventConfig   `yaml:"event"`
	Logging LoggingConfig `yaml:"logging"`
}

// QueueConfig selects and configures the queue connector.
type QueueConfig struct {
	// Type names which connector implementation to use. Only "amqp" is
	// currently implemented.
	Type           string     `yaml:"type"`
	AMQP           AMQPConfig `yaml:"amqp"`
	NodeIdentifier string     `yaml:"node_identifier"`
}

// AMQPConfig configures the broker connection and topology naming.
type AMQPConfig struct {
	Host                  string `yaml:"host"`
	User                  string `yaml:"user"`
	Password              string `yaml:"password"`
	VirtualHost           string `yaml:"virtual_host"`
	ExchangeName          string `yaml:"exchange_name"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout"`
	SSL                   bool   `yaml:"ssl"`
}

// EventConfig configures the worker pool draining dispatched events.
type EventConfig struct {
	WorkerProcesses int `yaml:"worker_processes"`
}

// LoggingConfig configures the node's structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

type document struct {
	Nite Config `yaml:"nite"`
}

const defaultQueueType = "amqp"

// Load reads and parses the YAML file at filename, applies defaults, and
// validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	cfg := doc.Nite
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Queue.Type == "" {
		c.Queue.Type = defaultQueueType
	}
}

// Validate reports the specific configuration problem, if any.
func (c *Config) Validate() error {
	switch c.Queue.Type {
	case "amqp":
		if c.Queue.AMQP.Host == "" {
			return fmt.Errorf("%w: nite.queue.amqp.host", ErrInvalid)
		}
		if c.Queue.AMQP.ExchangeName == "" {
			return fmt.Errorf("%w: nite.queue.amqp.exchange_name", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported nite.queue.type %q", ErrInvalid, c.Queue.Type)
	}
	if c.Event.WorkerProcesses < 0 {
		return fmt.Errorf("%w: nite.event.worker_processes cannot be negative", ErrInvalid)
	}
	return nil
}
