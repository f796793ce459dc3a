package controllers

import (
	"net/http"

	"github.com/4245877/liteforest-backend/api/responses"
	"github.com/4245877/liteforest-backend/internal/imports"
	pkgerrors "github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
)

// importFormLimit bounds how much of the multipart body is buffered in
// memory before spilling to disk. The per-file size limit is enforced by
// the intake service.
const importFormLimit = 8 << 20

// CreateImport receives a catalog spreadsheet as multipart form data,
// stages it in the object store and queues a bulk-import job.
func CreateImport(svc *imports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		if err := r.ParseMultipartForm(importFormLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field is required"))
			return
		}
		defer file.Close()

		result, err := svc.Accept(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
