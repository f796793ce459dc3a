package catalog

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/pkg/db/models"
	"github.com/4245877/liteforest-backend/pkg/enums"
	apperrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/pagination"
)

type stubCatalogRepo struct {
	products    []models.Product
	product     *models.Product
	createErr   error
	updatedOK   bool
	deletedOK   bool
	categories  []models.Category
	listParams  ListProductsParams
}

func (s *stubCatalogRepo) ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, error) {
	s.listParams = params
	return s.products, nil
}

func (s *stubCatalogRepo) FindProductByID(ctx context.Context, id int64) (*models.Product, error) {
	if s.product == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.product, nil
}

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	if s.createErr != nil {
		return s.createErr
	}
	product.ID = 11
	return nil
}

func (s *stubCatalogRepo) UpdateProduct(ctx context.Context, id int64, assignments map[string]any) (bool, error) {
	return s.updatedOK, nil
}

func (s *stubCatalogRepo) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	return s.deletedOK, nil
}

func (s *stubCatalogRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func (s *stubCatalogRepo) CreateCategory(ctx context.Context, category *models.Category) error {
	if s.createErr != nil {
		return s.createErr
	}
	category.ID = 7
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: zerolog.ErrorLevel, ServiceName: "test"})
}

func newTestService(t *testing.T, repo *stubCatalogRepo) *Service {
	t.Helper()
	svc, err := NewService(repo, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func makeProducts(n int, start time.Time) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, models.Product{
			ID:         int64(n - i),
			SKU:        "S",
			Title:      "T",
			IsActive:   true,
			CreatedAt:  start.Add(-time.Duration(i) * time.Minute),
		})
	}
	return products
}

func TestListProductsPageCursor(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := &stubCatalogRepo{products: makeProducts(3, start)}
	svc := newTestService(t, repo)

	page, err := svc.ListProducts(context.Background(), ListProductsParams{Limit: 2})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor when a buffer row is present")
	}
	cursor := pagination.ParseCursor(page.NextCursor)
	if cursor == nil || cursor.ID != page.Items[1].ID {
		t.Fatalf("cursor does not point at the last returned item: %+v", cursor)
	}

	repo.products = makeProducts(2, start)
	page, err = svc.ListProducts(context.Background(), ListProductsParams{Limit: 2})
	if err != nil {
		t.Fatalf("ListProducts last page: %v", err)
	}
	if page.NextCursor != "" {
		t.Fatal("last page must not carry a cursor")
	}
}

func TestGetProductFiltersUnreadyMedia(t *testing.T) {
	t.Parallel()

	repo := &stubCatalogRepo{product: &models.Product{
		ID:       3,
		SKU:      "A-1",
		IsActive: true,
		Media: []models.MediaAsset{
			{ID: 1, ProcessingStatus: enums.MediaStatusReady, Variants: models.VariantList{
				{Type: enums.VariantKindThumb, Width: 240, Height: 240, URL: "https://cdn/a-240.webp"},
			}},
			{ID: 2, ProcessingStatus: enums.MediaStatusPending},
			{ID: 3, ProcessingStatus: enums.MediaStatusFailed},
		},
	}}
	svc := newTestService(t, repo)

	view, err := svc.GetProduct(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if len(view.Media) != 1 || view.Media[0].ID != 1 {
		t.Fatalf("unready media leaked: %+v", view.Media)
	}
	if view.Media[0].Variants[0].Type != "thumb" {
		t.Errorf("variant type = %q", view.Media[0].Variants[0].Type)
	}
}

func TestGetProductHidesInactiveAndMissing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubCatalogRepo{})
	_, err := svc.GetProduct(context.Background(), 9)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("missing product: got %v", err)
	}

	svc = newTestService(t, &stubCatalogRepo{product: &models.Product{ID: 9, IsActive: false}})
	_, err = svc.GetProduct(context.Background(), 9)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("inactive product: got %v", err)
	}
}

func TestCreateProductConflict(t *testing.T) {
	t.Parallel()

	repo := &stubCatalogRepo{createErr: errUniqueViolation()}
	svc := newTestService(t, repo)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{SKU: "A-1", Title: "Mug"})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubCatalogRepo{})

	err := svc.UpdateProduct(context.Background(), 1, UpdateProductInput{})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("update: got %v", err)
	}
	err = svc.DeleteProduct(context.Background(), 1)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("delete: got %v", err)
	}
}

func errUniqueViolation() error {
	return &uniqueViolationErr{}
}

type uniqueViolationErr struct{}

func (*uniqueViolationErr) Error() string {
	return `duplicate key value violates unique constraint "ux_products_sku"`
}
