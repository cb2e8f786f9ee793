// Package service assembles the meal pipeline and its optional history and
// archive from a config.Config.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bububa/meal-agents/archive"
	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/components/inference/providers"
	"github.com/bububa/meal-agents/components/tokencounter"
	"github.com/bububa/meal-agents/config"
	"github.com/bububa/meal-agents/logging"
	"github.com/bububa/meal-agents/meal"
	"github.com/bububa/meal-agents/store"
	"github.com/bububa/meal-agents/tools"
	"github.com/bububa/meal-agents/tools/searxng"
	"github.com/bububa/meal-agents/tools/webscraper"
)

var (
	// ErrHistoryDisabled no store is configured
	ErrHistoryDisabled = errors.New("meal history is disabled")
	// ErrNoImage the record has no archived image
	ErrNoImage = errors.New("meal has no archived image")
)

// Pipeline is the part of *meal.Pipeline the service runs
type Pipeline interface {
	Analyze(ctx context.Context, req meal.Request) (*meal.Run, error)
	Stats() *meal.Stats
}

// Store persists completed analyses
type Store interface {
	Save(ctx context.Context, r *store.Record) error
	Get(ctx context.Context, id string) (*store.Record, error)
	List(ctx context.Context, limit int, offset int) ([]store.Record, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Archive keeps input images and reports
type Archive interface {
	PutImage(ctx context.Context, img meal.MealImage) (string, error)
	PutReport(ctx context.Context, runID string, report *meal.MealReport) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	ReportKey(runID string) string
	Delete(ctx context.Context, keys ...string) error
}

var (
	_ Pipeline = (*meal.Pipeline)(nil)
	_ Store    = (*store.SQLStore)(nil)
	_ Archive  = (*archive.Archive)(nil)
)

type Option func(*Service)

func WithStore(s Store) Option {
	return func(svc *Service) {
		svc.store = s
	}
}

func WithArchive(a Archive) Option {
	return func(svc *Service) {
		svc.archive = a
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = l
	}
}

// WithCloser registers fn to be called by Close
func WithCloser(fn func() error) Option {
	return func(svc *Service) {
		svc.closers = append(svc.closers, fn)
	}
}

// Service runs analyses and keeps their history. Persisting a completed
// report is best effort: failures are logged and the report still returned.
type Service struct {
	pipeline Pipeline
	store    Store
	archive  Archive
	logger   *slog.Logger
	closers  []func() error
}

// New returns a Service around pipeline
func New(pipeline Pipeline, opts ...Option) *Service {
	ret := &Service{pipeline: pipeline}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = logging.New("service")
	}
	return ret
}

// Build wires every collaborator described by cfg
func Build(ctx context.Context, cfg *config.Config) (*Service, error) {
	logger := logging.New("service")
	var opts []Option
	clt, closeClient, err := providers.New(ctx, providers.Settings{
		Provider:   cfg.Inference.Provider,
		APIKey:     cfg.Inference.APIKey,
		BaseURL:    cfg.Inference.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Inference.Timeout},
	}, inference.WithModel(cfg.Inference.Model), inference.WithMaxTokens(cfg.Inference.MaxTokens))
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithCloser(closeClient))

	searchOpts := []searxng.Option{
		searxng.WithBaseURL(cfg.Search.BaseURL),
		searxng.WithHttpClient(&http.Client{Timeout: cfg.Search.Timeout}),
	}
	if cfg.Search.Language != "" {
		searchOpts = append(searchOpts, searxng.WithLanguage(cfg.Search.Language))
	}
	if cfg.Search.Engines != "" {
		searchOpts = append(searchOpts, searxng.WithEngines(cfg.Search.Engines))
	}
	if cfg.Search.MaxResults > 0 {
		searchOpts = append(searchOpts, searxng.WithMaxResults(cfg.Search.MaxResults))
	}
	var scraper tools.Scraper
	if cfg.Search.Scrape {
		scraper = webscraper.New(webscraper.WithTimeout(cfg.Search.ScrapeTimeout))
	}
	counter, err := tokencounter.New(cfg.Search.Encoding)
	if err != nil {
		logger.Warn("token encoding unavailable, counting words", slog.String("encoding", cfg.Search.Encoding), slog.String("error", err.Error()))
	}
	pipeline, err := meal.New(meal.Config{
		Client:        clt,
		Searcher:      searxng.New(searchOpts...),
		Scraper:       scraper,
		TokenCounter:  counter,
		Model:         cfg.Inference.Model,
		Temperature:   cfg.Inference.Temperature,
		MaxTokens:     cfg.Inference.MaxTokens,
		SnippetTokens: cfg.Search.SnippetTokens,
		MaxSnippets:   cfg.Search.MaxSnippets,
	}, meal.WithLogger(logging.New("meal")))
	if err != nil {
		closeClient()
		return nil, err
	}

	if cfg.Store.Driver != "" {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			closeClient()
			return nil, fmt.Errorf("open store: %w", err)
		}
		opts = append(opts, WithStore(st), WithCloser(st.Close))
		logger.Info("meal history enabled", slog.String("driver", cfg.Store.Driver))
	}
	if cfg.Archive.Enabled {
		s3Client := archive.NewClient(archive.ClientConfig{
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			AccessKey:    cfg.Archive.AccessKey,
			SecretKey:    cfg.Archive.SecretKey,
			UsePathStyle: cfg.Archive.UsePathStyle,
		})
		prefix := cfg.Archive.Prefix
		if prefix == "" {
			prefix = cfg.Hosting.Project
		}
		arc, err := archive.New(archive.WithClient(s3Client), archive.WithBucket(cfg.ArchiveBucket()), archive.WithPrefix(prefix))
		if err != nil {
			svc := New(pipeline, opts...)
			svc.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		opts = append(opts, WithArchive(arc))
		logger.Info("archive enabled", slog.String("bucket", arc.Bucket()))
	}
	opts = append(opts, WithLogger(logger))
	return New(pipeline, opts...), nil
}

// Analyze runs the pipeline and records a completed run
func (s *Service) Analyze(ctx context.Context, req meal.Request) (*meal.Run, error) {
	run, err := s.pipeline.Analyze(ctx, req)
	if err != nil {
		return run, err
	}
	s.persist(ctx, run, req)
	return run, nil
}

func (s *Service) persist(ctx context.Context, run *meal.Run, req meal.Request) {
	if s.store == nil && s.archive == nil {
		return
	}
	logger := s.logger.With(slog.String("run", run.ID))
	var imageKey string
	if s.archive != nil {
		key, err := s.archive.PutImage(ctx, req.Image)
		if err != nil {
			logger.WarnContext(ctx, "archive image failed", slog.String("error", err.Error()))
		} else {
			imageKey = key
		}
		if _, err := s.archive.PutReport(ctx, run.ID, run.Report); err != nil {
			logger.WarnContext(ctx, "archive report failed", slog.String("error", err.Error()))
		}
	}
	if s.store == nil {
		return
	}
	record, err := store.NewRecord(run, req.Hint)
	if err != nil {
		logger.WarnContext(ctx, "build record failed", slog.String("error", err.Error()))
		return
	}
	record.ImageKey = imageKey
	if err := s.store.Save(ctx, record); err != nil {
		logger.WarnContext(ctx, "save record failed", slog.String("error", err.Error()))
	}
}

// Meals lists stored analyses, newest first
func (s *Service) Meals(ctx context.Context, limit int, offset int) ([]store.Record, int64, error) {
	if s.store == nil {
		return nil, 0, ErrHistoryDisabled
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Meal returns one stored analysis
func (s *Service) Meal(ctx context.Context, id string) (*store.Record, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.Get(ctx, id)
}

// DeleteMeal removes a stored analysis. Its archived image and report are
// removed best effort once the record is gone.
func (s *Service) DeleteMeal(ctx context.Context, id string) error {
	record, err := s.Meal(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.archive == nil {
		return nil
	}
	if err := s.archive.Delete(ctx, record.ImageKey, s.archive.ReportKey(id)); err != nil {
		s.logger.WarnContext(ctx, "delete archived objects failed", slog.String("run", id), slog.String("error", err.Error()))
	}
	return nil
}

// Image opens the archived input image of a stored analysis
func (s *Service) Image(ctx context.Context, id string) (io.ReadCloser, string, error) {
	record, err := s.Meal(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if s.archive == nil || record.ImageKey == "" {
		return nil, "", ErrNoImage
	}
	return s.archive.Open(ctx, record.ImageKey)
}

func (s *Service) Stats() meal.StatsSnapshot {
	return s.pipeline.Stats().Snapshot()
}

// Ping checks the history database when one is configured
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

// Close releases every collaborator, last opened first
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
