package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDecoder(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateHighlights(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateDecoder() error {
	if c.Decoder.TimeoutSeconds < 0 {
		return errors.New("decoder.timeout_seconds must be positive")
	}
	if c.Decoder.MaxOutputMiB < 0 {
		return errors.New("decoder.max_output_mib must be positive")
	}
	if c.Decoder.HeaderWindowBytes < 64 {
		return fmt.Errorf("decoder.header_window_bytes must be at least 64, got %d", c.Decoder.HeaderWindowBytes)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.TimeoutSeconds < 0 {
		return errors.New("render.timeout_seconds must be positive")
	}
	if c.Render.AssumedDurationSeconds < 0 {
		return errors.New("render.assumed_duration_seconds must be positive")
	}
	if c.Render.PlaceholderSeconds < 0 || c.Render.PlaceholderSeconds > 60 {
		return fmt.Errorf("render.placeholder_seconds must be between 1 and 60, got %d", c.Render.PlaceholderSeconds)
	}
	if c.Render.MaxStderrKiB < 0 {
		return errors.New("render.max_stderr_kib must be positive")
	}
	if strings.ContainsAny(c.Render.ClipsDirName, `/\`) {
		return fmt.Errorf("render.clips_dir_name must be a plain directory name, got %q", c.Render.ClipsDirName)
	}
	return nil
}

func (c *Config) validateHighlights() error {
	if len(c.Highlights.SniperWeapons) == 0 {
		return errors.New("highlights.sniper_weapons must list at least one weapon")
	}
	if len(c.Highlights.PistolWeapons) == 0 {
		return errors.New("highlights.pistol_weapons must list at least one weapon")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
