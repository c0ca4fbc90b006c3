// Command nite runs a single NITE node: it loads configuration, brings up
// the event dispatcher and AMQP queue connector, and drains the worker pool
// until it receives a termination signal.
//
// Module loading, CLI command input, and daemonization are collaborator
// concerns left to whatever embeds this node; this entry point only wires
// the core subsystems together and calls Start. It registers no listeners
// of its own.
//
// Called by: the operating system process execution
// Calls: internal/config, internal/supervisor, pkg/logging
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kalmanolah/nite/internal/config"
	"github.com/kalmanolah/nite/internal/supervisor"
	"github.com/kalmanolah/nite/pkg/logging"
)

func main() {
	configPath := flag.String("config", "config/nite.yaml", "path to the node's YAML configuration file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("nite: failed to load configuration from %s: %v", *configPath, err)
	}

	logger := logging.NewStderr(*verbose || cfg.Logging.Level == "debug")

	sup := supervisor.New(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sup.Start(ctx); err != nil {
		logger.Error("failed to start: %v", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, reloading")
				if err := sup.Reload(ctx); err != nil {
					logger.Error("reload failed: %v", err)
					sup.Stop()
					os.Exit(1)
				}
				continue
			}

			logger.Info("received %s, shutting down", sig)
			sup.Stop()
			return

		case err := <-sup.Faulted():
			logger.Error("broker fault, stopping node: %v", err)
			sup.Stop()
			os.Exit(1)
		}
	}
}
