package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/4245877/liteforest-backend/pkg/db/types"
	"github.com/4245877/liteforest-backend/pkg/enums"
)

// Job is one unit of deferred work. Rows are deleted on success; terminal
// failures stay behind with status failed for inspection.
type Job struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:(gen_random_uuid());primaryKey"`
	Queue        string           `gorm:"column:queue;not null;index:idx_jobs_claim,priority:1"`
	Name         string           `gorm:"column:name;not null"`
	Payload      dbtypes.JSONText `gorm:"column:payload;not null"`
	Status       enums.JobStatus  `gorm:"column:status;not null;default:queued;index:idx_jobs_claim,priority:2"`
	AttemptCount int              `gorm:"column:attempt_count;not null;default:0"`
	MaxAttempts  int              `gorm:"column:max_attempts;not null;default:3"`
	RunAt        time.Time        `gorm:"column:run_at;not null;index:idx_jobs_claim,priority:3"`
	ClaimedAt    *time.Time       `gorm:"column:claimed_at"`
	LastError    *string          `gorm:"column:last_error"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
