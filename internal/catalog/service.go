package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/pkg/db"
	"github.com/4245877/liteforest-backend/pkg/db/models"
	"github.com/4245877/liteforest-backend/pkg/enums"
	apperrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/pagination"
)

type catalogRepository interface {
	ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, error)
	FindProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id int64, assignments map[string]any) (bool, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
}

// Service implements the catalog read and admin APIs.
type Service struct {
	repo catalogRepository
	logg *logger.Logger
}

func NewService(repo catalogRepository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// ListProducts returns one storefront page. An extra row is fetched to
// decide whether a next cursor exists.
func (s *Service) ListProducts(ctx context.Context, params ListProductsParams) (*ProductPage, error) {
	products, err := s.repo.ListProducts(ctx, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "listing products")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page := &ProductPage{Items: make([]ProductView, 0, limit)}
	for i, product := range products {
		if i == limit {
			last := products[limit-1]
			page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		page.Items = append(page.Items, toProductView(product))
	}
	return page, nil
}

// GetProduct returns one active product for the storefront.
func (s *Service) GetProduct(ctx context.Context, id int64) (*ProductView, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading product")
	}
	if !product.IsActive {
		return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
	}
	view := toProductView(*product)
	return &view, nil
}

// CreateProduct inserts a new product for the admin API.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductView, error) {
	product := &models.Product{
		SKU:                 strings.TrimSpace(input.SKU),
		Title:               strings.TrimSpace(input.Title),
		Description:         input.Description,
		PriceCents:          input.PriceCents,
		CompareAtPriceCents: input.CompareAtPriceCents,
		StockQty:            input.StockQty,
		CategoryID:          input.CategoryID,
		IsActive:            true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, apperrors.New(apperrors.CodeConflict,
				fmt.Sprintf("product with sku %q already exists", product.SKU))
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "creating product")
	}
	view := toProductView(*product)
	return &view, nil
}

// UpdateProduct applies a partial update for the admin API.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) error {
	assignments := map[string]any{"updated_at": time.Now().UTC()}
	if input.Title != nil {
		assignments["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		assignments["description"] = *input.Description
	}
	if input.PriceCents != nil {
		assignments["price_cents"] = *input.PriceCents
	}
	if input.CompareAtPriceCents != nil {
		assignments["compare_at_price_cents"] = *input.CompareAtPriceCents
	}
	if input.StockQty != nil {
		assignments["stock_qty"] = *input.StockQty
	}
	if input.CategoryID != nil {
		assignments["category_id"] = *input.CategoryID
	}
	if input.IsActive != nil {
		assignments["is_active"] = *input.IsActive
	}

	updated, err := s.repo.UpdateProduct(ctx, id, assignments)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "updating product")
	}
	if !updated {
		return apperrors.New(apperrors.CodeNotFound, "product not found")
	}
	return nil
}

// DeleteProduct removes a product for the admin API.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "deleting product")
	}
	if !deleted {
		return apperrors.New(apperrors.CodeNotFound, "product not found")
	}
	return nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "listing categories")
	}
	views := make([]CategoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, toCategoryView(category))
	}
	return views, nil
}

// CreateCategory inserts a new category for the admin API.
func (s *Service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryView, error) {
	category := &models.Category{
		Name:        strings.TrimSpace(input.Name),
		Slug:        strings.ToLower(strings.TrimSpace(input.Slug)),
		Description: input.Description,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, apperrors.New(apperrors.CodeConflict,
				fmt.Sprintf("category with slug %q already exists", category.Slug))
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "creating category")
	}
	view := toCategoryView(*category)
	return &view, nil
}

func toProductView(product models.Product) ProductView {
	view := ProductView{
		ID:                  product.ID,
		SKU:                 product.SKU,
		Title:               product.Title,
		Description:         product.Description,
		PriceCents:          product.PriceCents,
		CompareAtPriceCents: product.CompareAtPriceCents,
		StockQty:            product.StockQty,
		Media:               make([]MediaView, 0, len(product.Media)),
		CreatedAt:           product.CreatedAt,
	}
	if product.Category != nil {
		category := toCategoryView(*product.Category)
		view.Category = &category
	}
	for _, asset := range product.Media {
		if asset.ProcessingStatus != enums.MediaStatusReady {
			continue
		}
		mediaView := MediaView{ID: asset.ID, Variants: make([]MediaVariantView, 0, len(asset.Variants))}
		for _, variant := range asset.Variants {
			mediaView.Variants = append(mediaView.Variants, MediaVariantView{
				Type:   variant.Type.String(),
				Width:  variant.Width,
				Height: variant.Height,
				URL:    variant.URL,
			})
		}
		view.Media = append(view.Media, mediaView)
	}
	return view
}

func toCategoryView(category models.Category) CategoryView {
	return CategoryView{
		ID:          category.ID,
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
	}
}
