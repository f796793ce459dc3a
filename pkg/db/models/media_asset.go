package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/4245877/liteforest-backend/pkg/enums"
)

// Variant describes one derived rendition of an uploaded image.
type Variant struct {
	Type   enums.VariantKind `json:"type"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
	URL    string            `json:"url"`
}

// VariantList stores the ordered variant descriptors as a jsonb column.
type VariantList []Variant

// Value serializes the list for the driver.
func (v VariantList) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling variants: %w", err)
	}
	return string(raw), nil
}

// Scan restores the list from driver output.
func (v *VariantList) Scan(src any) error {
	if src == nil {
		*v = VariantList{}
		return nil
	}

	var raw []byte
	switch val := src.(type) {
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	default:
		return fmt.Errorf("unsupported variants source type %T", src)
	}

	if len(raw) == 0 {
		*v = VariantList{}
		return nil
	}

	out := VariantList{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshaling variants: %w", err)
	}
	*v = out
	return nil
}

// GormDataType hints GORM at the column type for auto-migrated schemas.
func (VariantList) GormDataType() string {
	return "jsonb"
}

// MediaAsset tracks one uploaded image and its derivative pipeline state.
// The processing worker is the only writer after creation; status moves
// from pending to exactly one of ready or failed and never regresses.
type MediaAsset struct {
	ID               int64             `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID        int64             `gorm:"column:product_id;not null;index"`
	S3Key            string            `gorm:"column:s3_key;not null;unique"`
	ContentType      string            `gorm:"column:content_type;not null"`
	ProcessingStatus enums.MediaStatus `gorm:"column:processing_status;not null;default:pending"`
	Variants         VariantList       `gorm:"column:variants;not null;default:'[]'"`
	LastError        *string           `gorm:"column:last_error"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
