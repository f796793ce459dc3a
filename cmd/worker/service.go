package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/4245877/liteforest-backend/internal/catalog"
	"github.com/4245877/liteforest-backend/internal/imports"
	"github.com/4245877/liteforest-backend/internal/media"
	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/db"
	"github.com/4245877/liteforest-backend/pkg/instance"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/metrics"
	"github.com/4245877/liteforest-backend/pkg/queue"
	"github.com/4245877/liteforest-backend/pkg/redis"
	"github.com/4245877/liteforest-backend/pkg/storage/s3"
)

type ServiceParams struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
	Store  *s3.Client
}

// Service owns the job dispatcher and the handlers behind it: image
// processing and bulk catalog imports.
type Service struct {
	cfg        *config.Config
	logg       *logger.Logger
	db         *db.Client
	redis      *redis.Client
	store      *s3.Client
	dispatcher *queue.Dispatcher
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.Store == nil {
		return nil, errors.New("object store client is required")
	}

	jobRepo := queue.NewRepository(params.DB.DB())
	mediaRepo := media.NewRepository(params.DB.DB())
	catalogRepo := catalog.NewRepository(params.DB.DB())

	mediaService, err := media.NewService(
		mediaRepo,
		params.Store,
		params.Redis,
		media.NewProcessor(params.Config.Media),
		params.Logger,
		instance.GetID(),
	)
	if err != nil {
		return nil, fmt.Errorf("build media service: %w", err)
	}

	importWorker, err := imports.NewWorker(imports.WorkerParams{
		DB:         params.DB,
		Store:      params.Store,
		Products:   catalogRepo,
		Media:      mediaRepo,
		Jobs:       jobRepo,
		Logger:     params.Logger,
		EnableAVIF: params.Config.FeatureFlags.EnableAVIF,
	})
	if err != nil {
		return nil, fmt.Errorf("build import worker: %w", err)
	}

	dispatcher, err := queue.NewDispatcher(queue.DispatcherParams{
		Config:     params.Config,
		Logger:     params.Logger,
		DB:         params.DB,
		Repository: jobRepo,
		Metrics:    metrics.NewJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}

	if err := dispatcher.Register(
		queue.QueueImageProcessing,
		mediaService.HandleJob,
		queue.WithExhaustedHook(mediaService.OnExhausted),
	); err != nil {
		return nil, fmt.Errorf("register image handler: %w", err)
	}
	if err := dispatcher.Register(queue.QueueBulkImports, importWorker.HandleJob); err != nil {
		return nil, fmt.Errorf("register import handler: %w", err)
	}

	return &Service{
		cfg:        params.Config,
		logg:       params.Logger,
		db:         params.DB,
		redis:      params.Redis,
		store:      params.Store,
		dispatcher: dispatcher,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "object store", s.store.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	return s.dispatcher.Run(ctx)
}
