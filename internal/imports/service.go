package imports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/db/models"
	apperrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/queue"
)

// MIME types accepted by the intake endpoint.
var allowedMIMETypes = map[string]struct{}{
	"text/csv":                 {},
	"application/csv":          {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
}

type objectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, queue, name string, payload any, maxAttempts int) (*models.Job, error)
}

// Service accepts bulk-import uploads: validate, store raw bytes, enqueue.
// It never parses rows itself; that happens in the worker.
type Service struct {
	store    objectStore
	jobs     jobEnqueuer
	logg     *logger.Logger
	maxBytes int64
}

func NewService(store objectStore, jobs jobEnqueuer, cfg config.ImportsConfig, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("job enqueuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxMB := cfg.MaxFileMB
	if maxMB <= 0 {
		maxMB = 20
	}
	return &Service{
		store:    store,
		jobs:     jobs,
		logg:     logg,
		maxBytes: int64(maxMB) << 20,
	}, nil
}

// Accept validates and stores one uploaded file, then enqueues a
// bulk-import job for it. Validation failures leave storage and the queue
// untouched.
func (s *Service) Accept(ctx context.Context, file io.Reader, filename, declaredType string) (*IntakeResult, error) {
	if file == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "file field is required")
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "reading upload")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("file exceeds the %d MB limit", s.maxBytes>>20))
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "uploaded file is empty")
	}

	contentType, err := resolveContentType(data, declaredType)
	if err != nil {
		return nil, err
	}

	key := importKey(filename, time.Now())
	if err := s.store.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, err
	}

	job, err := s.jobs.Enqueue(ctx, queue.QueueBulkImports, "bulk-import", ImportJobPayload{
		S3Key:    key,
		Filename: filename,
	}, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "enqueuing import job")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"s3_key": key,
		"job_id": job.ID.String(),
	}), "import accepted")

	return &IntakeResult{JobID: job.ID.String(), Queued: true}, nil
}

// resolveContentType checks the client-declared MIME type against the
// whitelist. Content sniffing only rescues uploads whose declaration is
// absent or the generic application/octet-stream; a concrete but
// unsupported declaration is rejected as declared, whatever the bytes
// look like.
func resolveContentType(data []byte, declaredType string) (string, error) {
	declared := normalizeMIME(declaredType)
	if _, ok := allowedMIMETypes[declared]; ok {
		return declared, nil
	}

	if declared == "" || declared == "application/octet-stream" {
		detected := normalizeMIME(mimetype.Detect(data).String())
		if _, ok := allowedMIMETypes[detected]; ok {
			return detected, nil
		}
		if declared == "" {
			declared = detected
		}
	}

	return "", apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("unsupported file type %q: expected CSV or Excel", declared))
}

func normalizeMIME(value string) string {
	mediaType, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// importKey builds the storage key for a raw upload. The original
// extension is kept lower-cased; files without one default to csv.
func importKey(filename string, now time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = "csv"
	}
	return fmt.Sprintf("imports/%d-%s.%s", now.UnixMilli(), uuid.NewString(), ext)
}
