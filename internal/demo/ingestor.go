package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"fragreel/internal/config"
	"fragreel/internal/deps"
	"fragreel/internal/logging"
	"fragreel/internal/match"
	"fragreel/internal/services"
)

// Result is everything one recording yields.
type Result struct {
	Match    match.Record
	Rounds   []match.Round
	Kills    []match.Kill
	Players  []match.PlayerStat
	Degraded bool
	Decoder  string
}

// Ingestor validates recordings and decodes them with a fixed decoder.
type Ingestor struct {
	decoder Decoder
	logger  *slog.Logger
}

// NewIngestor selects the full decoder when its binary is installed and the
// header decoder otherwise.
func NewIngestor(cfg *config.Config, logger *slog.Logger) *Ingestor {
	logger = logging.NewComponentLogger(logger, "demo")
	if cfg == nil {
		return NewIngestorWithDecoder(&HeaderDecoder{Logger: logger}, logger)
	}
	var dec Decoder
	if deps.Available(cfg.Decoder.Binary) {
		dec = &CLIDecoder{
			Binary:    cfg.Decoder.Binary,
			Timeout:   time.Duration(cfg.Decoder.TimeoutSeconds) * time.Second,
			MaxOutput: int64(cfg.Decoder.MaxOutputMiB) * 1024 * 1024,
			Logger:    logger,
		}
	} else {
		logger.Info("structured decoder unavailable; using degraded header ingestion",
			logging.String("decoder", cfg.Decoder.Binary),
			logging.Any("reason", services.ErrParserUnavailable),
		)
		dec = &HeaderDecoder{Window: cfg.Decoder.HeaderWindowBytes, Logger: logger}
	}
	return NewIngestorWithDecoder(dec, logger)
}

// NewIngestorWithDecoder builds an ingestor around an explicit decoder.
func NewIngestorWithDecoder(dec Decoder, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ingestor{decoder: dec, logger: logger}
}

// Degraded reports whether the ingestor runs without the full decoder.
func (i *Ingestor) Degraded() bool {
	return i.decoder.Degraded()
}

// DecoderName identifies the active decoder.
func (i *Ingestor) DecoderName() string {
	return i.decoder.Name()
}

// Ingest validates path and decodes it. Kills come back sorted by round
// then tick.
func (i *Ingestor) Ingest(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "demo", "ingest", "path is empty", nil)
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "demo", "ingest", path, err)
	}
	if info.IsDir() {
		return Result{}, services.Wrap(services.ErrNotFound, "demo", "ingest", path+" is a directory", nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "demo", "ingest", "recording is not readable", err)
	}
	_ = f.Close()

	matchID := match.IDFor(path, info.ModTime())
	ctx = services.WithMatchID(ctx, matchID)
	logger := logging.WithContext(ctx, i.logger)

	doc, err := i.decoder.Decode(ctx, path)
	if err != nil {
		return Result{}, err
	}

	res := build(matchID, path, info.ModTime(), doc)
	res.Degraded = i.decoder.Degraded()
	res.Decoder = i.decoder.Name()
	if !res.Degraded {
		res.Match.ParsedData = string(doc.raw)
	}

	logger.Info("recording ingested",
		logging.String("map", res.Match.MapName),
		logging.String("decoder", res.Decoder),
		logging.Bool("degraded", res.Degraded),
		logging.Int("rounds", len(res.Rounds)),
		logging.Int("kills", len(res.Kills)),
	)
	return res, nil
}

func build(matchID, path string, modTime time.Time, doc Document) Result {
	mapName := strings.TrimSpace(doc.Map)
	if mapName == "" {
		mapName = match.UnknownMap
	}
	rec := match.Record{
		ID:         matchID,
		MapName:    mapName,
		MatchDate:  parseDate(doc.Date, modTime).UTC(),
		Duration:   max(int(doc.Duration), 0),
		ScoreCT:    doc.Score.CT,
		ScoreT:     doc.Score.T,
		TeamCTName: firstNonEmpty(doc.TeamCT, match.SideCT),
		TeamTName:  firstNonEmpty(doc.TeamT, match.SideT),
		DemoPath:   path,
	}

	kills := doc.kills(matchID)
	slices.SortStableFunc(kills, func(a, b match.Kill) int {
		if a.Round != b.Round {
			return a.Round - b.Round
		}
		return a.Tick - b.Tick
	})

	return Result{
		Match:   rec,
		Rounds:  doc.rounds(matchID),
		Kills:   kills,
		Players: doc.players(matchID),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ScanDirectory lists the .dem files directly inside dir, sorted by name. A
// missing directory yields no files.
func ScanDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".dem") {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(out)
	return out, nil
}
