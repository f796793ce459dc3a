package models

import "time"

// ProductMedia orders a product's gallery. The media asset row itself owns
// the processing state; this join only controls display position.
type ProductMedia struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64     `gorm:"column:product_id;not null;uniqueIndex:idx_product_media_position"`
	MediaID   int64     `gorm:"column:media_id;not null;index"`
	Position  int       `gorm:"column:position;not null;default:0;uniqueIndex:idx_product_media_position"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
