package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/4245877/liteforest-backend/pkg/db/models"
	"github.com/4245877/liteforest-backend/pkg/pagination"
)

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertBySKUTx inserts the product or, when the SKU already exists,
// refreshes its mutable columns. The product's ID is populated either way.
func (r *Repository) UpsertBySKUTx(tx *gorm.DB, product *models.Product) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "price_cents", "compare_at_price_cents",
			"stock_qty", "category_id", "updated_at",
		}),
	}).Create(product).Error
	if err != nil {
		return err
	}
	if product.ID == 0 {
		// Conflict path on drivers that do not report the id back.
		return tx.Select("id").
			Where("sku = ?", product.SKU).
			First(product).Error
	}
	return nil
}

// EnsureCategoryTx finds a category by slug, creating it on first sight.
func (r *Repository) EnsureCategoryTx(tx *gorm.DB, slug string) (*models.Category, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	var category models.Category
	err := tx.Where("slug = ?", slug).
		Attrs(models.Category{Name: slug}).
		FirstOrCreate(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListProducts returns one page of active products, newest first, with
// their media preloaded. The cursor keyset is (created_at, id) descending.
func (r *Repository) ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Media").
		Preload("Category").
		Where("products.is_active = ?", true)

	if params.CategorySlug != "" {
		query = query.
			Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", strings.ToLower(params.CategorySlug))
	}

	if cursor := pagination.ParseCursor(params.Cursor); cursor != nil {
		query = query.Where(
			"(products.created_at < ?) OR (products.created_at = ? AND products.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var products []models.Product
	err := query.
		Order("products.created_at DESC, products.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&products).Error
	return products, err
}

// FindProductByID loads one product with its media, active or not.
func (r *Repository) FindProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Media").
		Preload("Category").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateProduct persists the given column assignments for one product and
// reports whether the row existed.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, assignments map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(assignments)
	return result.RowsAffected > 0, result.Error
}

// DeleteProduct removes a product row and reports whether it existed.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// CreateCategory inserts a new category.
func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}
