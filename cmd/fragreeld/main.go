// Command fragreeld runs the fragreel API server and render worker in the
// foreground. It reads the default configuration file; use fragreel serve
// to pick a different one.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"fragreel/internal/config"
	"fragreel/internal/logging"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := run(ctx, cfg, logger, nil); err != nil {
		logging.ErrorWithContext(logger, "fragreeld stopped", "daemon_failed", logging.Error(err))
		cancel()
		log.Fatalf("fragreeld: %v", err)
	}
	logger.Info("fragreeld shutting down")
}
