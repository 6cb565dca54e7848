package validators

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/petcare/vetclinic-backend/internal/images"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
)

var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// IsMultipart reports whether the request carries a multipart form.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// ParseMultipart parses the form with the upload size cap applied to the body.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.FieldError("image", fmt.Sprintf("must be at most %d bytes", maxBytes))
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// ReadImage returns the image in field, or nil when the form has none. The
// content type is sniffed from the bytes; the client's header is ignored.
func ReadImage(r *http.Request, field string, maxBytes int64) (*images.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image upload")
	}
	if int64(len(data)) > maxBytes {
		return nil, pkgerrors.FieldError(field, fmt.Sprintf("must be at most %d bytes", maxBytes))
	}
	if len(data) == 0 {
		return nil, pkgerrors.FieldError(field, "is empty")
	}

	detected, err := mimetype.DetectReader(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "detect image type")
	}
	if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
		return nil, pkgerrors.FieldError(field, "must be a jpeg, png, gif or webp image")
	}

	return &images.Upload{
		Data:        data,
		ContentType: detected.String(),
		Extension:   detected.Extension(),
	}, nil
}
