package main

import (
	"context"
	"log/slog"
	"time"

	"fragreel/internal/config"
	"fragreel/internal/daemon"
	"fragreel/internal/logging"
)

// shutdownGrace bounds how long live tasks get to wind down on exit.
const shutdownGrace = 15 * time.Second

// run opens the workspace and serves until ctx ends.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready func(addr string)) error {
	d, err := daemon.Open(cfg, logger, version)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := d.Close(closeCtx); err != nil {
			logging.WarnWithContext(logger, "shutdown incomplete", "daemon_close_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some tasks may be recorded as interrupted on next start"),
			)
		}
	}()

	return d.Serve(ctx, func(addr string) {
		logger.Info("fragreeld listening", logging.String("addr", listenURL(addr)))
		if ready != nil {
			ready(addr)
		}
	})
}

func listenURL(addr string) string {
	if addr == "" {
		return ""
	}
	return "http://" + addr
}
