package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/daemon"
	"fragreel/internal/logging"
	"fragreel/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// log returns the process logger, falling back to a no-op logger when the
// log file cannot be opened.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// withStore opens the store for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(cfg, st)
}

// openDaemon takes the workspace lock. It reports locked=true when another
// process holds it so callers can fall back to the API.
func (c *commandContext) openDaemon() (d *daemon.Daemon, locked bool, err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, false, err
	}
	d, err = daemon.Open(cfg, c.log(), version)
	if errors.Is(err, daemon.ErrLocked) {
		return nil, true, nil
	}
	return d, false, err
}

// withWorkspace runs local against an in-process daemon, or remote against
// the running server when another process holds the workspace lock.
func (c *commandContext) withWorkspace(cmd *cobra.Command, local func(*daemon.Daemon) error, remote func(*api.Client) error) error {
	d, locked, err := c.openDaemon()
	if err != nil {
		return err
	}
	if locked {
		cfg, err := c.ensureConfig()
		if err != nil {
			return err
		}
		return remote(api.NewClient(cfg.API.Bind))
	}
	runErr := local(d)
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 10*time.Second)
	defer cancel()
	if err := d.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
