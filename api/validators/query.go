package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
)

// optionalQuery parses key with parse; an absent or blank value yields nil.
func optionalQuery[T any](r *http.Request, key, problem string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.FieldError(key, problem)
	}
	return &value, nil
}

func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	return optionalQuery(r, key, "must be a valid id", uuid.Parse)
}

func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	return optionalQuery(r, key, "must be true or false", strconv.ParseBool)
}

// ParseURLUUID reads a chi path parameter. A malformed id cannot name an
// existing resource, so it is reported as not found.
func ParseURLUUID(r *http.Request, param, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	}
	return id, nil
}
