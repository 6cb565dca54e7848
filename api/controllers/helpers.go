package controllers

import (
	"net/http"

	"github.com/petcare/vetclinic-backend/api/middleware"
	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const imageField = "image"

func actorFrom(r *http.Request) identity.Actor {
	return middleware.ActorFromContext(r.Context())
}

func writeError(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	responses.WriteError(r.Context(), logg, w, err)
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

// decodeBody fills dest from JSON, or from a multipart form when the client
// sent one, and returns the optional image part.
func decodeBody(w http.ResponseWriter, r *http.Request, maxUpload int64, dest any, boolFields ...string) (*images.Upload, error) {
	if !validators.IsMultipart(r) {
		return nil, validators.DecodeJSONBody(r, dest)
	}
	if err := validators.ParseMultipart(w, r, maxUpload); err != nil {
		return nil, err
	}
	if err := validators.DecodeForm(r, dest, boolFields...); err != nil {
		return nil, err
	}
	return validators.ReadImage(r, imageField, maxUpload)
}

// requireImage reads the mandatory image part of an upload-only endpoint.
func requireImage(w http.ResponseWriter, r *http.Request, maxUpload int64) (*images.Upload, error) {
	if !validators.IsMultipart(r) {
		return nil, pkgerrors.FieldError(imageField, "must be sent as multipart/form-data")
	}
	if err := validators.ParseMultipart(w, r, maxUpload); err != nil {
		return nil, err
	}
	upload, err := validators.ReadImage(r, imageField, maxUpload)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, pkgerrors.FieldError(imageField, "is required")
	}
	return upload, nil
}
