package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fragreel/internal/logging"
	"fragreel/internal/match"
	"fragreel/internal/procexec"
	"fragreel/internal/services"
)

// Decoder turns a recording into a Document.
type Decoder interface {
	Name() string
	// Degraded reports whether the decoder only recovers header metadata.
	Degraded() bool
	Decode(ctx context.Context, path string) (Document, error)
}

// Recording magic tokens for the legacy and Source 2 formats.
var magicTokens = [][]byte{
	[]byte("HL2DEMO\x00"),
	[]byte("PBDEMS2\x00"),
}

var mapPattern = regexp.MustCompile(`de_[a-z0-9_]+`)

const maxTailBytes int64 = 1 << 20

// CLIDecoder runs the external decoder as `<binary> parse <demo> -o <json>`.
type CLIDecoder struct {
	Binary    string
	Timeout   time.Duration
	MaxOutput int64
	Logger    *slog.Logger
}

// Name implements Decoder.
func (d *CLIDecoder) Name() string { return "cli" }

// Degraded implements Decoder.
func (d *CLIDecoder) Degraded() bool { return false }

// Decode implements Decoder.
func (d *CLIDecoder) Decode(ctx context.Context, path string) (Document, error) {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	tmpDir, err := os.MkdirTemp("", "fragreel-decode-")
	if err != nil {
		return Document{}, services.Wrap(services.ErrDecodeFailed, "demo", "decode", "create temp dir", err)
	}
	defer os.RemoveAll(tmpDir)
	outPath := filepath.Join(tmpDir, "match.json")

	res, runErr := procexec.Run(ctx, procexec.Command{
		Binary:    d.Binary,
		Args:      []string{"parse", path, "-o", outPath},
		Timeout:   d.Timeout,
		TailBytes: int(min(d.MaxOutput, maxTailBytes)),
	})
	if runErr != nil {
		if _, statErr := os.Stat(outPath); statErr != nil {
			return Document{}, services.Wrap(services.ErrDecodeFailed, "demo", "decode", filepath.Base(path), runErr)
		}
		logging.WarnWithContext(logger, "decoder exited with error but produced output; parsing best-effort", "decode_partial",
			logging.Int("exit_code", res.ExitCode),
			logging.Error(runErr),
			logging.String(logging.FieldImpact, "match data may be incomplete"),
			logging.String(logging.FieldErrorHint, "re-run the decoder manually to inspect its output"),
		)
	}

	doc, err := readDocument(outPath, d.MaxOutput)
	if err != nil {
		return Document{}, services.Wrap(services.ErrDecodeFailed, "demo", "decode", filepath.Base(path), err)
	}
	logger.Debug("decoder finished",
		logging.String("decoder", d.Binary),
		logging.Duration("elapsed", res.Elapsed),
		logging.Int("kills", len(doc.Kills)),
		logging.Int("rounds", len(doc.Rounds)),
	)
	return doc, nil
}

func readDocument(path string, limit int64) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read decoder output: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return Document{}, fmt.Errorf("decoder output exceeds %d bytes", limit)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Document{}, errors.New("decoder output is empty")
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse decoder output: %w", err)
	}
	doc.raw = data
	return doc, nil
}

// HeaderDecoder recovers the map name from the first Window bytes of the
// recording, falling back to the file name. It never fails on content.
type HeaderDecoder struct {
	Window int
	Logger *slog.Logger
}

// Name implements Decoder.
func (d *HeaderDecoder) Name() string { return "header" }

// Degraded implements Decoder.
func (d *HeaderDecoder) Degraded() bool { return true }

// Decode implements Decoder.
func (d *HeaderDecoder) Decode(_ context.Context, path string) (Document, error) {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	window := d.Window
	if window <= 0 {
		window = 1024
	}

	header := readHeader(path, window)
	if len(header) > 0 && !hasMagic(header) {
		logging.WarnWithContext(logger, "recording does not start with a known magic token", "demo_magic_mismatch",
			logging.String("path", path),
			logging.String(logging.FieldImpact, "map name recovery may be unreliable"),
			logging.String(logging.FieldErrorHint, "confirm the file is a CS2 or CS:GO demo"),
		)
	}
	return Document{Map: MapFromHeader(header, path)}, nil
}

func readHeader(path string, window int) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, window)
	n, _ := io.ReadFull(f, buf)
	return buf[:n]
}

func hasMagic(header []byte) bool {
	for _, token := range magicTokens {
		if bytes.HasPrefix(header, token) {
			return true
		}
	}
	return false
}

// MapFromHeader scans header bytes for a de_ map token, then the file name,
// and returns match.UnknownMap when neither carries one.
func MapFromHeader(header []byte, path string) string {
	if m := mapPattern.Find(header); m != nil {
		return string(m)
	}
	base := strings.ToLower(filepath.Base(path))
	if m := mapPattern.FindString(base); m != "" {
		return strings.TrimSuffix(m, "_")
	}
	return match.UnknownMap
}
