package validators

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
)

// maxJSONBody caps JSON payloads; uploads go through multipart instead.
const maxJSONBody = 1 << 20

var validate = func() *validator.Validate {
	v := validator.New()
	// Report json names so field errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}()

// DecodeJSONBody reads exactly one JSON object into dest and validates it.
func DecodeJSONBody(r *http.Request, dest any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body")
	}
	if len(raw) > maxJSONBody {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must contain a single object")
	}
	return Validate(dest)
}

// Validate runs dest's validate tags, one message per failing field.
func Validate(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	fields := pkgerrors.FieldErrors{}
	for _, fe := range failures {
		fields.Add(fe.Field(), describe(fe))
	}
	return pkgerrors.Validation(fields)
}

func decodeError(err error) *pkgerrors.Error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return pkgerrors.FieldError(typeErr.Field, "must be a "+typeErr.Type.String())
	case errors.As(err, &syntaxErr):
		return pkgerrors.New(pkgerrors.CodeValidation, "malformed JSON").
			WithDetails(map[string]string{"body": fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)})
	case errors.Is(err, io.ErrUnexpectedEOF):
		return pkgerrors.New(pkgerrors.CodeValidation, "malformed JSON").
			WithDetails(map[string]string{"body": "unexpected end of input"})
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return pkgerrors.FieldError(strings.Trim(field, `"`), "is not allowed")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
}

func describe(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "uuid", "uuid4":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}
