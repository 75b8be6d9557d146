package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDecoder()
	c.normalizeRender()
	c.normalizeHighlights()
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = defaultIngestConcurrency
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	c.Paths.OutputDir = envOr(EnvOutputDir, c.Paths.OutputDir)
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.DemoDir, err = expandPath(strings.TrimSpace(c.Paths.DemoDir)); err != nil {
		return fmt.Errorf("paths.demo_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDecoder() {
	c.Decoder.Binary = envOr(EnvDecoderBinary, strings.TrimSpace(c.Decoder.Binary))
	if c.Decoder.Binary == "" {
		c.Decoder.Binary = defaultDecoderBinary
	}
	if c.Decoder.TimeoutSeconds == 0 {
		c.Decoder.TimeoutSeconds = defaultDecoderTimeoutSeconds
	}
	if c.Decoder.MaxOutputMiB == 0 {
		c.Decoder.MaxOutputMiB = defaultDecoderMaxOutputMiB
	}
	if c.Decoder.HeaderWindowBytes == 0 {
		c.Decoder.HeaderWindowBytes = defaultHeaderWindowBytes
	}
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
	c.Render.CaptureBinary = envOr(EnvCaptureBinary, strings.TrimSpace(c.Render.CaptureBinary))
	if c.Render.CaptureBinary == "" {
		c.Render.CaptureBinary = defaultCaptureBinary
	}
	if c.Render.TimeoutSeconds == 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
	if c.Render.AssumedDurationSeconds == 0 {
		c.Render.AssumedDurationSeconds = defaultAssumedDurationSeconds
	}
	if c.Render.PlaceholderSeconds == 0 {
		c.Render.PlaceholderSeconds = defaultPlaceholderSeconds
	}
	if c.Render.MaxStderrKiB == 0 {
		c.Render.MaxStderrKiB = defaultMaxStderrKiB
	}
	c.Render.DefaultTemplate = strings.ToLower(strings.TrimSpace(c.Render.DefaultTemplate))
	if c.Render.DefaultTemplate == "" {
		c.Render.DefaultTemplate = defaultTemplate
	}
	c.Render.ClipsDirName = strings.TrimSpace(c.Render.ClipsDirName)
	if c.Render.ClipsDirName == "" {
		c.Render.ClipsDirName = defaultClipsDirName
	}
}

func (c *Config) normalizeHighlights() {
	c.Highlights.SniperWeapons = normalizeWeaponList(c.Highlights.SniperWeapons)
	c.Highlights.PistolWeapons = normalizeWeaponList(c.Highlights.PistolWeapons)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeWeaponList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
