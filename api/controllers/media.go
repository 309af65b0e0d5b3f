package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/arepera-backend/api/responses"
	"github.com/angelmondragon/arepera-backend/internal/media"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
)

const (
	mediaFormField = "file"
	// room for multipart boundaries and headers around the file part
	multipartOverhead = 64 << 10
)

// AdminMediaUpload stores one product image from the "file" form field.
func AdminMediaUpload(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("media"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit := svc.MaxUploadBytes()
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
		if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file too large").
					WithDetails(map[string]any{"maxBytes": limit}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(mediaFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
				WithDetails(map[string]any{"field": mediaFormField}))
			return
		}
		defer file.Close()

		result, err := svc.Upload(r.Context(), caller, media.UploadInput{
			Filename: header.Filename,
			Size:     header.Size,
			Content:  file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
