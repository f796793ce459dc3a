package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/internal/media"
	"github.com/4245877/liteforest-backend/pkg/db"
	"github.com/4245877/liteforest-backend/pkg/db/models"
	apperrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/queue"
)

type objectDownloader interface {
	GetObjectStream(ctx context.Context, key string) (io.ReadCloser, error)
}

type productStore interface {
	UpsertBySKUTx(tx *gorm.DB, product *models.Product) error
	EnsureCategoryTx(tx *gorm.DB, slug string) (*models.Category, error)
}

type mediaCreator interface {
	CreatePendingTx(tx *gorm.DB, asset *models.MediaAsset) error
}

type txEnqueuer interface {
	EnqueueTx(tx *gorm.DB, queue, name string, payload any, maxAttempts int) (*models.Job, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Worker consumes bulk-import jobs: download the stored file, parse it and
// upsert one product per row. Rows with an image key also get a pending
// media asset and an image-processing job, committed in the same row
// transaction so a crash cannot orphan either side.
type Worker struct {
	db         txRunner
	store      objectDownloader
	products   productStore
	media      mediaCreator
	jobs       txEnqueuer
	logg       *logger.Logger
	enableAVIF bool
}

type WorkerParams struct {
	DB         txRunner
	Store      objectDownloader
	Products   productStore
	Media      mediaCreator
	Jobs       txEnqueuer
	Logger     *logger.Logger
	EnableAVIF bool
}

func NewWorker(params WorkerParams) (*Worker, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Jobs == nil {
		return nil, fmt.Errorf("job enqueuer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Worker{
		db:         params.DB,
		store:      params.Store,
		products:   params.Products,
		media:      params.Media,
		jobs:       params.Jobs,
		logg:       params.Logger,
		enableAVIF: params.EnableAVIF,
	}, nil
}

// HandleJob is the bulk-imports queue handler.
func (w *Worker) HandleJob(ctx context.Context, job models.Job) error {
	var payload ImportJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return queue.NewNonRetryableError(fmt.Errorf("malformed import job payload: %w", err))
	}
	if payload.S3Key == "" {
		return queue.NewNonRetryableError(fmt.Errorf("import job missing s3_key"))
	}

	ctx = w.logg.WithField(ctx, "s3_key", payload.S3Key)

	stream, err := w.store.GetObjectStream(ctx, payload.S3Key)
	if err != nil {
		return err
	}
	defer stream.Close()

	rows, rowErrs := ParseProducts(stream, payload.Filename)
	if len(rows) == 0 {
		// Nothing usable came out; re-reading the same bytes will not
		// change that.
		if rowErrs != nil {
			return queue.NewNonRetryableError(fmt.Errorf("import file unusable: %w", rowErrs))
		}
		return queue.NewNonRetryableError(fmt.Errorf("import file contains no product rows"))
	}

	imported := 0
	for _, row := range rows {
		if err := w.importRow(ctx, row); err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d (%s): %w", row.Line, row.SKU, err))
			continue
		}
		imported++
	}

	w.logg.Info(w.logg.WithFields(ctx, map[string]any{
		"imported": imported,
		"failed":   len(multierr.Errors(rowErrs)),
	}), "bulk import finished")

	if imported == 0 {
		return fmt.Errorf("all %d rows failed: %w", len(rows), rowErrs)
	}
	return nil
}

// importRow upserts one product and, when the row names an image, creates
// the pending asset and its processing job in the same transaction.
func (w *Worker) importRow(ctx context.Context, row ProductRow) error {
	return w.db.WithTx(ctx, func(tx *gorm.DB) error {
		product := &models.Product{
			SKU:                 row.SKU,
			Title:               row.Title,
			Description:         row.Description,
			PriceCents:          row.PriceCents,
			CompareAtPriceCents: row.CompareAtPriceCents,
			StockQty:            row.StockQty,
			IsActive:            true,
		}
		if row.CategorySlug != "" {
			category, err := w.products.EnsureCategoryTx(tx, row.CategorySlug)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeDependency, err, "resolving category")
			}
			product.CategoryID = &category.ID
		}
		if err := w.products.UpsertBySKUTx(tx, product); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "upserting product")
		}

		if row.ImageKey == "" {
			return nil
		}

		asset := &models.MediaAsset{
			ProductID:   product.ID,
			S3Key:       row.ImageKey,
			ContentType: contentTypeForKey(row.ImageKey),
		}
		if err := w.media.CreatePendingTx(tx, asset); err != nil {
			if db.IsUniqueViolation(err, "") {
				// Re-imported row pointing at an already-registered
				// image; the existing asset keeps its state.
				return nil
			}
			return apperrors.Wrap(apperrors.CodeDependency, err, "creating media asset")
		}

		_, err := w.jobs.EnqueueTx(tx, queue.QueueImageProcessing, "process-image", media.ImageJobPayload{
			MediaID:     asset.ID,
			S3Key:       asset.S3Key,
			ContentType: asset.ContentType,
			EnableAVIF:  w.enableAVIF,
		}, 0)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "enqueuing image job")
		}
		return nil
	})
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
