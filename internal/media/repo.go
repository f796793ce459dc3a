package media

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/pkg/db/models"
	"github.com/4245877/liteforest-backend/pkg/enums"
)

// Repository exposes media asset persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreatePendingTx inserts a new pending asset inside the caller's
// transaction.
func (r *Repository) CreatePendingTx(tx *gorm.DB, asset *models.MediaAsset) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	asset.ProcessingStatus = enums.MediaStatusPending
	if asset.Variants == nil {
		asset.Variants = models.VariantList{}
	}
	return tx.Create(asset).Error
}

// FindByID retrieves an asset by ID.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// CommitReady flips a pending asset to ready with a full variant replace.
// The status guard makes the commit a no-op when the asset already left
// pending, so duplicate redelivered jobs cannot regress state.
func (r *Repository) CommitReady(ctx context.Context, id int64, variants models.VariantList) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.MediaAsset{}).
		Where("id = ?", id).
		Where("processing_status = ?", enums.MediaStatusPending).
		Updates(map[string]any{
			"processing_status": enums.MediaStatusReady,
			"variants":          variants,
			"last_error":        nil,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkFailed records a terminal processing failure. Only pending assets
// transition; ready assets are never regressed.
func (r *Repository) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.MediaAsset{}).
		Where("id = ?", id).
		Where("processing_status = ?", enums.MediaStatusPending).
		Updates(map[string]any{
			"processing_status": enums.MediaStatusFailed,
			"last_error":        truncateReason(reason),
		})
	return result.RowsAffected > 0, result.Error
}

func truncateReason(reason string) string {
	if len(reason) > 2048 {
		return reason[:2048]
	}
	return reason
}
