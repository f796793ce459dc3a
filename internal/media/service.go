package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/pkg/db/models"
	"github.com/4245877/liteforest-backend/pkg/enums"
	apperrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/queue"
)

const lockTTL = 10 * time.Minute

type assetRepository interface {
	FindByID(ctx context.Context, id int64) (*models.MediaAsset, error)
	CommitReady(ctx context.Context, id int64, variants models.VariantList) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) (bool, error)
}

type objectStore interface {
	GetObjectStream(ctx context.Context, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

type locker interface {
	MediaLockKey(mediaID int64) string
	AcquireLock(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

type renderer interface {
	Render(r io.Reader, enableAVIF bool) ([]Rendition, error)
}

// Service consumes image-processing jobs: download, transform, upload all
// variants, then commit the asset row.
type Service struct {
	repo   assetRepository
	store  objectStore
	locks  locker
	render renderer
	logg   *logger.Logger
	holder string
}

func NewService(repo assetRepository, store objectStore, locks locker, render renderer, logg *logger.Logger, holder string) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock client required")
	}
	if render == nil {
		return nil, fmt.Errorf("processor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:   repo,
		store:  store,
		locks:  locks,
		render: render,
		logg:   logg,
		holder: holder,
	}, nil
}

// HandleJob is the image-processing queue handler.
func (s *Service) HandleJob(ctx context.Context, job models.Job) error {
	var payload ImageJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return queue.NewNonRetryableError(fmt.Errorf("malformed image job payload: %w", err))
	}
	if payload.MediaID <= 0 || payload.S3Key == "" {
		return queue.NewNonRetryableError(fmt.Errorf("image job missing media_id or s3_key"))
	}

	ctx = s.logg.WithMediaID(ctx, payload.MediaID)

	// One job per asset at a time. A held lock means another worker has a
	// duplicate redelivery in flight; back off and let the retry find the
	// asset already committed.
	lockKey := s.locks.MediaLockKey(payload.MediaID)
	won, err := s.locks.AcquireLock(ctx, lockKey, s.holder, lockTTL)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "acquiring media lock")
	}
	if !won {
		return fmt.Errorf("media %d is locked by another worker", payload.MediaID)
	}
	defer func() {
		if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logg.Warn(ctx, "releasing media lock failed")
		}
	}()

	asset, err := s.repo.FindByID(ctx, payload.MediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return queue.NewNonRetryableError(fmt.Errorf("media asset %d not found", payload.MediaID))
		}
		return apperrors.Wrap(apperrors.CodeDependency, err, "loading media asset")
	}

	// Redelivery after a successful commit lands here.
	if asset.ProcessingStatus != enums.MediaStatusPending {
		s.logg.Info(ctx, "asset already processed, skipping")
		return nil
	}

	stream, err := s.store.GetObjectStream(ctx, payload.S3Key)
	if err != nil {
		return err
	}
	defer stream.Close()

	renditions, err := s.render.Render(stream, payload.EnableAVIF)
	if err != nil {
		// Undecodable bytes will not decode on the next attempt either.
		return queue.NewNonRetryableError(
			apperrors.Wrap(apperrors.CodeTransform, err, "transforming image"))
	}

	variants := make(models.VariantList, 0, len(renditions))
	for _, rendition := range renditions {
		key := DeriveVariantKey(payload.S3Key, rendition.Kind)
		err := s.store.PutObject(ctx, key, bytes.NewReader(rendition.Data), int64(len(rendition.Data)), rendition.ContentType)
		if err != nil {
			// Partial uploads are fine: keys are deterministic, the
			// retry overwrites everything and the asset stays pending.
			return err
		}
		variants = append(variants, models.Variant{
			Type:   rendition.Kind,
			Width:  rendition.Width,
			Height: rendition.Height,
			URL:    s.store.PublicURL(key),
		})
	}

	committed, err := s.repo.CommitReady(ctx, payload.MediaID, variants)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "committing media asset")
	}
	if !committed {
		s.logg.Info(ctx, "asset left pending before commit, skipping")
		return nil
	}

	s.logg.Info(s.logg.WithField(ctx, "variants", len(variants)), "media asset ready")
	return nil
}

// OnExhausted marks the asset failed once the job queue gives up. The
// pending guard keeps a concurrent successful commit from being clobbered.
func (s *Service) OnExhausted(ctx context.Context, job models.Job, cause error) {
	var payload ImageJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.MediaID <= 0 {
		return
	}
	marked, err := s.repo.MarkFailed(ctx, payload.MediaID, cause.Error())
	if err != nil {
		s.logg.Error(ctx, "marking media asset failed errored", err)
		return
	}
	if marked {
		s.logg.Warn(s.logg.WithMediaID(ctx, payload.MediaID), "media asset marked failed")
	}
}

// GetAsset returns the read model for the status endpoint.
func (s *Service) GetAsset(ctx context.Context, id int64) (*AssetView, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "media asset not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading media asset")
	}

	view := &AssetView{
		ID:               asset.ID,
		ProductID:        asset.ProductID,
		ProcessingStatus: asset.ProcessingStatus.String(),
		Variants:         make([]VariantView, 0, len(asset.Variants)),
		LastError:        asset.LastError,
	}
	for _, variant := range asset.Variants {
		view.Variants = append(view.Variants, VariantView{
			Type:   variant.Type.String(),
			Width:  variant.Width,
			Height: variant.Height,
			URL:    variant.URL,
		})
	}
	return view, nil
}
