package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"fragreel/internal/config"
	"fragreel/internal/demo"
	"fragreel/internal/highlight"
	"fragreel/internal/logging"
	"fragreel/internal/match"
	"fragreel/internal/services"
	"fragreel/internal/store"
)

// Store is the persistence the workflow writes to.
type Store interface {
	SaveIngestion(ctx context.Context, in store.Ingestion) error
	ListHighlights(ctx context.Context, matchID string) ([]match.Highlight, error)
	DeleteMatch(ctx context.Context, id string) (bool, error)
}

// TaskForgetter drops live render tasks for deleted highlights.
type TaskForgetter interface {
	ForgetHighlights(highlightIDs ...string) int
}

// Summary describes one ingested recording.
type Summary struct {
	Path       string        `json:"path"`
	MatchID    string        `json:"match_id"`
	MapName    string        `json:"map_name"`
	Rounds     int           `json:"rounds"`
	Kills      int           `json:"kills"`
	Players    int           `json:"players"`
	Highlights int           `json:"highlights"`
	Degraded   bool          `json:"degraded"`
	Decoder    string        `json:"decoder"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Failure records a recording the batch could not ingest.
type Failure struct {
	Path    string `json:"path"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// BatchResult collects the outcome of IngestDirectory.
type BatchResult struct {
	Ingested []Summary `json:"ingested"`
	Failed   []Failure `json:"failed"`
}

// Service runs ingestion end to end.
type Service struct {
	ingestor    *demo.Ingestor
	detector    *highlight.Detector
	store       Store
	forgetter   TaskForgetter
	concurrency int
	logger      *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithIngestor replaces the configured ingestor.
func WithIngestor(ing *demo.Ingestor) Option {
	return func(s *Service) {
		if ing != nil {
			s.ingestor = ing
		}
	}
}

// WithTaskForgetter registers the pipeline so match deletion can drop its
// live tasks.
func WithTaskForgetter(f TaskForgetter) Option {
	return func(s *Service) {
		s.forgetter = f
	}
}

// NewService wires an ingestor and detector from configuration.
func NewService(cfg *config.Config, st Store, logger *slog.Logger, opts ...Option) *Service {
	logger = logging.NewComponentLogger(logger, "workflow")
	policy := highlight.DefaultPolicy()
	concurrency := 1
	if cfg != nil {
		policy = highlight.Policy{
			SniperWeapons:    cfg.Highlights.SniperWeapons,
			PistolWeapons:    cfg.Highlights.PistolWeapons,
			ExclusiveStreaks: cfg.Highlights.ExclusiveStreaks,
		}
		concurrency = max(cfg.Ingest.Concurrency, 1)
	}
	s := &Service{
		ingestor:    demo.NewIngestor(cfg, logger),
		detector:    highlight.NewDetector(policy),
		store:       st,
		concurrency: concurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Degraded reports whether ingestion runs without the full decoder.
func (s *Service) Degraded() bool {
	return s.ingestor.Degraded()
}

// IngestFile decodes one recording, detects its highlights and stores
// everything. Re-ingesting the same recording replaces its events and keeps
// rendered artifacts for highlights that are detected again.
func (s *Service) IngestFile(ctx context.Context, path string) (Summary, error) {
	start := time.Now()
	res, err := s.ingestor.Ingest(ctx, path)
	if err != nil {
		return Summary{}, err
	}
	ctx = services.WithMatchID(ctx, res.Match.ID)
	logger := logging.WithContext(ctx, s.logger)

	highlights := s.detector.Detect(res.Kills)
	err = s.store.SaveIngestion(ctx, store.Ingestion{
		Match:      res.Match,
		Rounds:     res.Rounds,
		Kills:      res.Kills,
		Players:    res.Players,
		Highlights: highlights,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("store match %s: %w", res.Match.ID, err)
	}

	summary := Summary{
		Path:       res.Match.DemoPath,
		MatchID:    res.Match.ID,
		MapName:    res.Match.MapName,
		Rounds:     len(res.Rounds),
		Kills:      len(res.Kills),
		Players:    len(res.Players),
		Highlights: len(highlights),
		Degraded:   res.Degraded,
		Decoder:    res.Decoder,
		Elapsed:    time.Since(start),
	}
	logger.Info("match stored",
		logging.String(logging.FieldEventType, "match_stored"),
		logging.String("map", summary.MapName),
		logging.Int("highlights", summary.Highlights),
		logging.Bool("degraded", summary.Degraded),
		logging.Duration("elapsed", summary.Elapsed),
	)
	if res.Degraded {
		logging.WarnWithContext(logger, "match stored without events", "degraded_ingest",
			logging.String(logging.FieldImpact, "no rounds, kills or highlights for this match"),
			logging.String(logging.FieldErrorHint, "install the demo decoder and ingest again"),
		)
	}
	return summary, nil
}

// IngestDirectory ingests every recording in dir. A failing recording does
// not stop the batch; all failures are combined into the returned error.
func (s *Service) IngestDirectory(ctx context.Context, dir string) (BatchResult, error) {
	paths, err := demo.ScanDirectory(dir)
	if err != nil {
		return BatchResult{}, services.Wrap(services.ErrNotFound, "workflow", "scan", dir, err)
	}
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("batch ingestion started",
		logging.String("dir", dir),
		logging.Int("recordings", len(paths)),
		logging.Int("concurrency", s.concurrency),
	)

	var (
		mu     sync.Mutex
		result BatchResult
		errs   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary, err := s.IngestFile(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.WarnWithContext(logger, "recording skipped", "ingest_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "match not stored"),
				)
				result.Failed = append(result.Failed, Failure{Path: path, Message: err.Error(), Err: err})
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
				return nil
			}
			result.Ingested = append(result.Ingested, summary)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = multierr.Append(errs, err)
	}

	slices.SortFunc(result.Ingested, func(a, b Summary) int { return strings.Compare(a.Path, b.Path) })
	slices.SortFunc(result.Failed, func(a, b Failure) int { return strings.Compare(a.Path, b.Path) })
	logger.Info("batch ingestion finished",
		logging.Int("ingested", len(result.Ingested)),
		logging.Int("failed", len(result.Failed)),
	)
	return result, errs
}

// DeleteMatch removes a match with its events and highlights and drops live
// render tasks for those highlights.
func (s *Service) DeleteMatch(ctx context.Context, id string) error {
	highlights, err := s.store.ListHighlights(ctx, id)
	if err != nil {
		return err
	}
	removed, err := s.store.DeleteMatch(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "workflow", "delete match", id, nil)
	}
	if s.forgetter != nil && len(highlights) > 0 {
		ids := make([]string, 0, len(highlights))
		for _, h := range highlights {
			ids = append(ids, h.ID)
		}
		s.forgetter.ForgetHighlights(ids...)
	}
	logging.WithContext(services.WithMatchID(ctx, id), s.logger).Info("match deleted",
		logging.Int("highlights", len(highlights)),
	)
	return nil
}
