package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/4245877/liteforest-backend/api/responses"
	"github.com/4245877/liteforest-backend/api/validators"
	"github.com/4245877/liteforest-backend/pkg/db/models"
	pkgerrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
)

// FailedJobStore is the slice of the job repository the admin endpoints
// need: inspecting and purging retained terminal failures.
type FailedJobStore interface {
	ListFailed(ctx context.Context, limit int) ([]models.Job, error)
	DeleteFailed(ctx context.Context, id uuid.UUID) (bool, error)
}

type failedJobView struct {
	ID           uuid.UUID       `json:"id"`
	Queue        string          `json:"queue"`
	Name         string          `json:"name"`
	Payload      json.RawMessage `json:"payload"`
	AttemptCount int             `json:"attemptCount"`
	MaxAttempts  int             `json:"maxAttempts"`
	LastError    *string         `json:"lastError,omitempty"`
	FailedAt     time.Time       `json:"failedAt"`
}

// AdminListFailedJobs exposes the dead-letter backlog to operators.
func AdminListFailedJobs(store FailedJobStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job store unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobs, err := store.ListFailed(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list failed jobs"))
			return
		}

		views := make([]failedJobView, 0, len(jobs))
		for _, job := range jobs {
			views = append(views, failedJobView{
				ID:           job.ID,
				Queue:        job.Queue,
				Name:         job.Name,
				Payload:      json.RawMessage(job.Payload),
				AttemptCount: job.AttemptCount,
				MaxAttempts:  job.MaxAttempts,
				LastError:    job.LastError,
				FailedAt:     job.UpdatedAt,
			})
		}

		responses.WriteSuccess(w, views)
	}
}

// AdminDeleteFailedJob purges one retained failure once an operator has
// resolved or discarded it.
func AdminDeleteFailedJob(store FailedJobStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job store unavailable"))
			return
		}

		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "jobId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}

		deleted, err := store.DeleteFailed(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete failed job"))
			return
		}
		if !deleted {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "job not found"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
