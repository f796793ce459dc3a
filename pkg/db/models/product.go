package models

import "time"

// Product represents one storefront listing.
type Product struct {
	ID                  int64        `gorm:"column:id;primaryKey;autoIncrement"`
	CategoryID          *int64       `gorm:"column:category_id;index"`
	SKU                 string       `gorm:"column:sku;not null;uniqueIndex"`
	Title               string       `gorm:"column:title;not null"`
	Description         *string      `gorm:"column:description"`
	PriceCents          int64        `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int64       `gorm:"column:compare_at_price_cents"`
	StockQty            int          `gorm:"column:stock_qty;not null;default:0"`
	IsActive            bool         `gorm:"column:is_active;not null;default:true"`
	Category            *Category    `gorm:"foreignKey:CategoryID"`
	Media               []MediaAsset `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
