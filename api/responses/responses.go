package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err as {error, code, details}. Untyped errors become
// INTERNAL_ERROR. Messages and details only reach the client when the code
// allows it; everything goes to the log.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		if err == nil {
			err = errors.New("unknown error")
		}
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
		err = typed
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	payload := types.ErrorEnvelope{Error: meta.PublicMessage, Code: string(typed.Code())}
	if msg := typed.Message(); meta.MessageAllowed && msg != "" {
		payload.Error = msg
	}
	if meta.DetailsAllowed {
		payload.Details = typed.Details()
	}

	logRequestError(ctx, logg, meta.HTTPStatus, err)
	writeJSON(w, meta.HTTPStatus, payload)
}

func logRequestError(ctx context.Context, logg *logger.Logger, status int, err error) {
	if logg == nil {
		return
	}
	ctx = logg.WithFields(ctx, pkgerrors.LogFields(err))
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
