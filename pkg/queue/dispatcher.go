package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/db/models"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/metrics"
)

const (
	defaultBatchSize   = 10
	defaultPollMs      = 500
	defaultMaxAttempts = 3
	defaultBackoffBase = 2 * time.Second
	defaultVisibility  = 5 * time.Minute
	reapEvery          = 30 * time.Second
	maxBackoff         = 60 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type jobRepository interface {
	ClaimBatchTx(tx *gorm.DB, queues []string, limit int) ([]models.Job, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, cause error, delay time.Duration) error
	MarkTerminal(ctx context.Context, id uuid.UUID, cause error) error
	ReapExpired(ctx context.Context, visibility time.Duration) (int64, error)
}

type registration struct {
	handler   Handler
	exhausted ExhaustedHook
}

// RegisterOption customizes one queue registration.
type RegisterOption func(*registration)

// WithExhaustedHook attaches a callback that fires once, after the final
// failed attempt.
func WithExhaustedHook(hook ExhaustedHook) RegisterOption {
	return func(r *registration) {
		r.exhausted = hook
	}
}

// DispatcherParams collects the dispatcher dependencies.
type DispatcherParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository jobRepository
	Metrics    *metrics.JobMetrics
}

// Dispatcher polls the jobs table and fans claimed jobs out to registered
// handlers. One dispatcher drains every queue it has a handler for.
type Dispatcher struct {
	logg         *logger.Logger
	db           dbClient
	repo         jobRepository
	metrics      *metrics.JobMetrics
	handlers     map[string]registration
	queues       []string
	batchSize    int
	maxAttempts  int
	backoffBase  time.Duration
	visibility   time.Duration
	pollInterval time.Duration
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("job repository is required")
	}

	cfg := params.Config.Queue
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := cfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoffBase := cfg.BackoffBase()
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	visibility := cfg.VisibilityTimeout
	if visibility <= 0 {
		visibility = defaultVisibility
	}

	return &Dispatcher{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		metrics:      params.Metrics,
		handlers:     make(map[string]registration),
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		backoffBase:  backoffBase,
		visibility:   visibility,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// Register binds a handler to a queue. Registering the same queue twice is
// a programming error.
func (d *Dispatcher) Register(queue string, handler Handler, opts ...RegisterOption) error {
	if queue == "" {
		return errors.New("queue name is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	if _, exists := d.handlers[queue]; exists {
		return fmt.Errorf("queue %s already registered", queue)
	}
	reg := registration{handler: handler}
	for _, opt := range opts {
		opt(&reg)
	}
	d.handlers[queue] = reg
	d.queues = append(d.queues, queue)
	return nil
}

// Run polls until the context is canceled. Claiming happens in a short
// transaction; handlers execute after commit so slow image work never holds
// row locks. A crashed worker's claims come back via the reaper.
func (d *Dispatcher) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(d.queues) == 0 {
		return errors.New("no queues registered")
	}

	if err := d.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	interval := d.pollInterval
	backoff := interval
	lastReap := time.Time{}

	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "dispatcher context canceled")
			return ctx.Err()
		default:
		}

		if time.Since(lastReap) >= reapEvery {
			if reaped, err := d.repo.ReapExpired(ctx, d.visibility); err != nil {
				d.logg.Error(ctx, "reaping expired claims failed", err)
			} else if reaped > 0 {
				d.logg.Info(d.logg.WithField(ctx, "count", reaped), "re-queued expired claims")
			}
			lastReap = time.Now()
		}

		processed, err := d.processBatch(ctx)
		if err != nil {
			d.logg.Error(ctx, "dispatcher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := sleepOrDone(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := sleepOrDone(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) (bool, error) {
	var jobs []models.Job
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := d.repo.ClaimBatchTx(tx, d.queues, d.batchSize)
		if err != nil {
			return err
		}
		jobs = claimed
		return nil
	})
	if err != nil {
		return false, err
	}
	if len(jobs) == 0 {
		return false, nil
	}

	for _, job := range jobs {
		d.execute(ctx, job)
	}
	return true, nil
}

func (d *Dispatcher) execute(ctx context.Context, job models.Job) {
	reg, ok := d.handlers[job.Queue]
	if !ok {
		// Claimed a queue nothing handles; requeue so another worker
		// binary can pick it up.
		if err := d.repo.MarkRetry(ctx, job.ID, fmt.Errorf("no handler for queue %s", job.Queue), d.backoffBase); err != nil {
			d.logg.Error(ctx, "releasing unhandled job failed", err)
		}
		return
	}

	jobCtx := d.logg.WithJobID(ctx, job.ID.String())
	jobCtx = d.logg.WithQueue(jobCtx, job.Queue)

	started := time.Now()
	handlerErr := reg.handler(jobCtx, job)
	d.metrics.ObserveDuration(job.Queue, time.Since(started))

	if handlerErr == nil {
		if err := d.repo.MarkSucceeded(ctx, job.ID); err != nil {
			d.logg.Error(jobCtx, "deleting succeeded job failed", err)
			return
		}
		d.metrics.IncSuccess(job.Queue)
		d.logg.Info(jobCtx, "job succeeded")
		return
	}

	attempt := job.AttemptCount + 1
	failCtx := d.logg.WithField(jobCtx, "attempt", attempt)

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = d.maxAttempts
	}
	if !IsNonRetryable(handlerErr) && attempt < maxAttempts {
		delay := retryDelay(d.backoffBase, attempt)
		if err := d.repo.MarkRetry(ctx, job.ID, handlerErr, delay); err != nil {
			d.logg.Error(failCtx, "re-queueing failed job failed", err)
			return
		}
		d.metrics.IncRetry(job.Queue)
		d.logg.Warn(d.logg.WithField(failCtx, "retry_in", delay.String()), "job failed, will retry")
		return
	}

	if reg.exhausted != nil {
		reg.exhausted(failCtx, job, handlerErr)
	}
	if err := d.repo.MarkTerminal(ctx, job.ID, handlerErr); err != nil {
		d.logg.Error(failCtx, "marking job terminal failed", err)
		return
	}
	d.metrics.IncFailure(job.Queue)
	d.logg.Error(failCtx, "job failed terminally", handlerErr)
}

// retryDelay doubles per attempt: base after the first failure, 2x base
// after the second, and so on.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
