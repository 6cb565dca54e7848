package validators

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
)

// DecodeForm maps a parsed multipart form onto dest the same way
// DecodeJSONBody maps a JSON object. Keys listed in boolFields are parsed as
// booleans; every other value is a string. File parts are ignored.
func DecodeForm(r *http.Request, dest any, boolFields ...string) error {
	if r.MultipartForm == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "multipart form is required")
	}
	bools := make(map[string]bool, len(boolFields))
	for _, f := range boolFields {
		bools[f] = true
	}

	fields := pkgerrors.FieldErrors{}
	payload := make(map[string]any, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		raw := strings.TrimSpace(values[0])
		if !bools[key] {
			payload[key] = raw
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			fields.Add(key, "must be true or false")
			continue
		}
		payload[key] = parsed
	}
	if err := fields.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode form")
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return decodeError(err)
	}
	return Validate(dest)
}
