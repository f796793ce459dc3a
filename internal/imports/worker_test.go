package imports

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/4245877/liteforest-backend/internal/media"
	"github.com/4245877/liteforest-backend/pkg/db/models"
	dbtypes "github.com/4245877/liteforest-backend/pkg/db/types"
	"github.com/4245877/liteforest-backend/pkg/queue"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubDownloader struct {
	body string
	err  error
}

func (s *stubDownloader) GetObjectStream(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

type stubProductStore struct {
	upserts    []models.Product
	categories []string
	upsertErr  map[string]error
	nextID     int64
}

func (s *stubProductStore) UpsertBySKUTx(tx *gorm.DB, product *models.Product) error {
	if err := s.upsertErr[product.SKU]; err != nil {
		return err
	}
	s.nextID++
	product.ID = s.nextID
	s.upserts = append(s.upserts, *product)
	return nil
}

func (s *stubProductStore) EnsureCategoryTx(tx *gorm.DB, slug string) (*models.Category, error) {
	s.categories = append(s.categories, slug)
	return &models.Category{ID: 77, Name: slug, Slug: slug}, nil
}

type stubMediaCreator struct {
	assets    []models.MediaAsset
	createErr error
	nextID    int64
}

func (s *stubMediaCreator) CreatePendingTx(tx *gorm.DB, asset *models.MediaAsset) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	asset.ID = s.nextID
	s.assets = append(s.assets, *asset)
	return nil
}

type stubTxEnqueuer struct {
	queues   []string
	payloads []any
}

func (s *stubTxEnqueuer) EnqueueTx(tx *gorm.DB, queueName, name string, payload any, maxAttempts int) (*models.Job, error) {
	s.queues = append(s.queues, queueName)
	s.payloads = append(s.payloads, payload)
	return &models.Job{ID: uuid.New(), Queue: queueName, Name: name, Payload: dbtypes.JSONText(`{}`)}, nil
}

func importJob(t *testing.T, payload string) models.Job {
	t.Helper()
	return models.Job{
		Queue:   queue.QueueBulkImports,
		Name:    "bulk-import",
		Payload: dbtypes.JSONText(payload),
	}
}

func newTestWorker(t *testing.T, store *stubDownloader, products *stubProductStore, mediaStore *stubMediaCreator, jobs *stubTxEnqueuer) *Worker {
	t.Helper()
	worker, err := NewWorker(WorkerParams{
		DB:         passthroughTx{},
		Store:      store,
		Products:   products,
		Media:      mediaStore,
		Jobs:       jobs,
		Logger:     testLogger(),
		EnableAVIF: true,
	})
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	return worker
}

func TestWorkerImportsRowsAndQueuesImages(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"sku,title,price,category,image_key",
		"A-1,Blue Mug,9.99,kitchen,uploads/mugs/blue.jpg",
		"A-2,Poster,4.00,,",
	}, "\n")
	store := &stubDownloader{body: body}
	products := &stubProductStore{}
	mediaStore := &stubMediaCreator{}
	jobs := &stubTxEnqueuer{}
	worker := newTestWorker(t, store, products, mediaStore, jobs)

	err := worker.HandleJob(context.Background(), importJob(t, `{"s3_key":"imports/1-a.csv","filename":"products.csv"}`))
	if err != nil {
		t.Fatalf("HandleJob: %v", err)
	}

	if len(products.upserts) != 2 {
		t.Fatalf("upserted %d products, want 2", len(products.upserts))
	}
	if got := products.upserts[0]; got.CategoryID == nil || *got.CategoryID != 77 {
		t.Errorf("first product category = %v", got.CategoryID)
	}
	if len(mediaStore.assets) != 1 {
		t.Fatalf("created %d media assets, want 1", len(mediaStore.assets))
	}
	asset := mediaStore.assets[0]
	if asset.S3Key != "uploads/mugs/blue.jpg" || asset.ContentType != "image/jpeg" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if len(jobs.queues) != 1 || jobs.queues[0] != queue.QueueImageProcessing {
		t.Fatalf("image jobs enqueued on %v", jobs.queues)
	}
	payload, ok := jobs.payloads[0].(media.ImageJobPayload)
	if !ok {
		t.Fatalf("payload type %T", jobs.payloads[0])
	}
	if payload.MediaID != asset.ID || payload.S3Key != asset.S3Key || !payload.EnableAVIF {
		t.Fatalf("unexpected image payload %+v", payload)
	}
}

func TestWorkerBadRowDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"sku,title,price",
		"A-1,Good,1.00",
		"A-2,Broken,2.00",
		"A-3,Also Good,3.00",
	}, "\n")
	products := &stubProductStore{upsertErr: map[string]error{"A-2": errors.New("deadlock detected")}}
	worker := newTestWorker(t, &stubDownloader{body: body}, products, &stubMediaCreator{}, &stubTxEnqueuer{})

	err := worker.HandleJob(context.Background(), importJob(t, `{"s3_key":"imports/1-a.csv","filename":"products.csv"}`))
	if err != nil {
		t.Fatalf("partial failure must not fail the batch: %v", err)
	}
	if len(products.upserts) != 2 {
		t.Fatalf("upserted %d products, want the 2 good rows", len(products.upserts))
	}
}

func TestWorkerAllRowsFailedReturnsError(t *testing.T) {
	t.Parallel()

	products := &stubProductStore{upsertErr: map[string]error{"A-1": errors.New("connection refused")}}
	worker := newTestWorker(t, &stubDownloader{body: "sku,title,price\nA-1,Only Row,1.00"}, products, &stubMediaCreator{}, &stubTxEnqueuer{})

	err := worker.HandleJob(context.Background(), importJob(t, `{"s3_key":"imports/1-a.csv","filename":"products.csv"}`))
	if err == nil {
		t.Fatal("expected batch failure")
	}
	if queue.IsNonRetryable(err) {
		t.Fatalf("infrastructure failure must stay retryable: %v", err)
	}
}

func TestWorkerUnusableFileIsNonRetryable(t *testing.T) {
	t.Parallel()

	worker := newTestWorker(t, &stubDownloader{body: "sku,title\nA-1,No Price Column"}, &stubProductStore{}, &stubMediaCreator{}, &stubTxEnqueuer{})

	err := worker.HandleJob(context.Background(), importJob(t, `{"s3_key":"imports/1-a.csv","filename":"products.csv"}`))
	if !queue.IsNonRetryable(err) {
		t.Fatalf("expected non-retryable, got %v", err)
	}
}

func TestWorkerToleratesDuplicateMediaAsset(t *testing.T) {
	t.Parallel()

	mediaStore := &stubMediaCreator{createErr: errors.New("UNIQUE constraint failed: media_assets.s3_key")}
	jobs := &stubTxEnqueuer{}
	worker := newTestWorker(t, &stubDownloader{body: "sku,title,price,image_key\nA-1,Mug,1.00,uploads/a.png"}, &stubProductStore{}, mediaStore, jobs)

	err := worker.HandleJob(context.Background(), importJob(t, `{"s3_key":"imports/1-a.csv","filename":"products.csv"}`))
	if err != nil {
		t.Fatalf("duplicate asset must be tolerated: %v", err)
	}
	if len(jobs.queues) != 0 {
		t.Fatal("no image job should be enqueued for an existing asset")
	}
}

func TestWorkerMalformedPayloadIsNonRetryable(t *testing.T) {
	t.Parallel()

	worker := newTestWorker(t, &stubDownloader{}, &stubProductStore{}, &stubMediaCreator{}, &stubTxEnqueuer{})

	for _, payload := range []string{`{broken`, `{"filename":"x.csv"}`} {
		err := worker.HandleJob(context.Background(), importJob(t, payload))
		if !queue.IsNonRetryable(err) {
			t.Fatalf("payload %q: expected non-retryable, got %v", payload, err)
		}
	}
}
