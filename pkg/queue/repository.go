package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/4245877/liteforest-backend/pkg/db/models"
	dbtypes "github.com/4245877/liteforest-backend/pkg/db/types"
	"github.com/4245877/liteforest-backend/pkg/enums"
)

// Repository persists jobs. Succeeded jobs are deleted; terminal failures
// keep their row with status failed so operators can inspect and re-run
// them.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue inserts a ready-to-run job outside any caller transaction.
func (r *Repository) Enqueue(ctx context.Context, queue, name string, payload any, maxAttempts int) (*models.Job, error) {
	return r.enqueue(r.db.WithContext(ctx), queue, name, payload, maxAttempts)
}

// EnqueueTx inserts a job inside the caller's transaction so the job only
// becomes visible if the surrounding write commits.
func (r *Repository) EnqueueTx(tx *gorm.DB, queue, name string, payload any, maxAttempts int) (*models.Job, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	return r.enqueue(tx, queue, name, payload, maxAttempts)
}

func (r *Repository) enqueue(tx *gorm.DB, queue, name string, payload any, maxAttempts int) (*models.Job, error) {
	if queue == "" {
		return nil, errors.New("queue name is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling job payload: %w", err)
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	job := models.Job{
		ID:          uuid.New(),
		Queue:       queue,
		Name:        name,
		Payload:     dbtypes.JSONText(raw),
		Status:      enums.JobStatusQueued,
		MaxAttempts: maxAttempts,
		RunAt:       time.Now().UTC(),
	}
	if err := tx.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("inserting job: %w", err)
	}
	return &job, nil
}

// ClaimBatchTx selects up to limit due jobs from the named queues and flips
// them to active. Under Postgres the select takes row locks with SKIP
// LOCKED so concurrent workers never claim the same row.
func (r *Repository) ClaimBatchTx(tx *gorm.DB, queues []string, limit int) ([]models.Job, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}

	now := time.Now().UTC()
	query := tx.
		Where("queue IN ?", queues).
		Where("status = ?", enums.JobStatusQueued).
		Where("run_at <= ?", now).
		Order("run_at ASC").
		Order("created_at ASC").
		Limit(limit)
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var rows []models.Job
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("selecting claimable jobs: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	err := tx.Model(&models.Job{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     enums.JobStatusActive,
			"claimed_at": now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("claiming jobs: %w", err)
	}

	for i := range rows {
		rows[i].Status = enums.JobStatusActive
		claimed := now
		rows[i].ClaimedAt = &claimed
	}
	return rows, nil
}

// MarkSucceeded deletes a completed job.
func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Job{}, "id = ?", id).Error
}

// MarkRetry re-queues a failed job with its next attempt scheduled after
// the supplied delay.
func (r *Repository) MarkRetry(ctx context.Context, id uuid.UUID, cause error, delay time.Duration) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.JobStatusQueued,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"run_at":        time.Now().UTC().Add(delay),
			"claimed_at":    nil,
			"last_error":    errorMessage(cause),
		}).Error
}

// MarkTerminal retains the job row with status failed for inspection.
func (r *Repository) MarkTerminal(ctx context.Context, id uuid.UUID, cause error) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.JobStatusFailed,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"claimed_at":    nil,
			"last_error":    errorMessage(cause),
		}).Error
}

// ReapExpired returns to the queue any active job whose claim is older than
// the visibility timeout. Crashed workers lose their claim here instead of
// wedging the job forever.
func (r *Repository) ReapExpired(ctx context.Context, visibility time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-visibility)
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("status = ?", enums.JobStatusActive).
		Where("claimed_at < ?", cutoff).
		Updates(map[string]any{
			"status":     enums.JobStatusQueued,
			"claimed_at": nil,
		})
	return result.RowsAffected, result.Error
}

// ListFailed returns retained terminal failures, newest first.
func (r *Repository) ListFailed(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.JobStatusFailed).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeleteFailed removes one retained failure after an operator is done with
// it. Only failed rows are deletable through this path.
func (r *Repository) DeleteFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("status = ?", enums.JobStatusFailed).
		Delete(&models.Job{})
	return result.RowsAffected > 0, result.Error
}

func errorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if len(msg) > 2048 {
		msg = msg[:2048]
	}
	return &msg
}
