package catalog

import "time"

// ListProductsParams filters and paginates the storefront product listing.
type ListProductsParams struct {
	Limit        int
	Cursor       string
	CategorySlug string
}

// ProductPage is one page of the product listing plus the cursor for the
// next one. NextCursor is empty on the last page.
type ProductPage struct {
	Items      []ProductView `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// ProductView is the storefront read model. Media carries only ready
// variants; pending and failed assets are invisible to shoppers.
type ProductView struct {
	ID                  int64       `json:"id"`
	SKU                 string      `json:"sku"`
	Title               string      `json:"title"`
	Description         *string     `json:"description,omitempty"`
	PriceCents          int64       `json:"priceCents"`
	CompareAtPriceCents *int64      `json:"compareAtPriceCents,omitempty"`
	StockQty            int         `json:"stockQty"`
	Category            *CategoryView `json:"category,omitempty"`
	Media               []MediaView `json:"media"`
	CreatedAt           time.Time   `json:"createdAt"`
}

// CategoryView is the category read model.
type CategoryView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
}

// MediaView is one ready media asset with its variants.
type MediaView struct {
	ID       int64             `json:"id"`
	Variants []MediaVariantView `json:"variants"`
}

// MediaVariantView mirrors the stored variant descriptor.
type MediaVariantView struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// CreateProductInput is the admin payload for creating a product.
type CreateProductInput struct {
	SKU                 string  `json:"sku" validate:"required"`
	Title               string  `json:"title" validate:"required"`
	Description         *string `json:"description"`
	PriceCents          int64   `json:"priceCents" validate:"gte=0"`
	CompareAtPriceCents *int64  `json:"compareAtPriceCents" validate:"omitempty,gte=0"`
	StockQty            int     `json:"stockQty" validate:"gte=0"`
	CategoryID          *int64  `json:"categoryId"`
	IsActive            *bool   `json:"isActive"`
}

// UpdateProductInput is the admin payload for a partial product update.
// Nil fields are left untouched.
type UpdateProductInput struct {
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	PriceCents          *int64  `json:"priceCents" validate:"omitempty,gte=0"`
	CompareAtPriceCents *int64  `json:"compareAtPriceCents" validate:"omitempty,gte=0"`
	StockQty            *int    `json:"stockQty" validate:"omitempty,gte=0"`
	CategoryID          *int64  `json:"categoryId"`
	IsActive            *bool   `json:"isActive"`
}

// CreateCategoryInput is the admin payload for creating a category.
type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required"`
	Slug        string  `json:"slug" validate:"required"`
	Description *string `json:"description"`
}
