package validators

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

type petBody struct {
	Name   string `json:"name" validate:"required,max=5"`
	Gender string `json:"gender" validate:"required,oneof=Male Female"`
}

func fieldDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details %T", typed.Details())
	return details
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Sir Barksalot","gender":"Other"}`))
	var dest petBody
	details := fieldDetails(t, DecodeJSONBody(req, &dest))
	require.Equal(t, "must be at most 5", details["name"])
	require.Equal(t, "must be one of: Male, Female", details["gender"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Rex","gender":"Male","owner":"x"}`))
	var dest petBody
	details := fieldDetails(t, DecodeJSONBody(req, &dest))
	require.Equal(t, "is not allowed", details["owner"])
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	var dest petBody
	err := DecodeJSONBody(req, &dest)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"syntax":    `{"name":"Rex",}`,
		"trailing":  `{"name":"Rex","gender":"Male"} {"name":"Max"}`,
		"truncated": `{"name":"Re`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest petBody
			err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &dest)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	var dest petBody
	huge := `{"name":"` + strings.Repeat("x", maxJSONBody) + `"}`
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge)), &dest)
	require.EqualError(t, err, "VALIDATION_ERROR: request body too large")
}

func TestDecodeJSONBodyWrongType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":7,"gender":"Male"}`))
	var dest petBody
	require.Equal(t, "must be a string", fieldDetails(t, DecodeJSONBody(req, &dest))["name"])
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "", BearerToken(req, "c"))

	req.AddCookie(&http.Cookie{Name: "c", Value: "from-cookie"})
	require.Equal(t, "from-cookie", BearerToken(req, "c"))

	req.Header.Set("Authorization", "bearer  abc ")
	require.Equal(t, "abc", BearerToken(req, "c"))
}

func TestParseQueryHelpers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?pet_id="+id.String()+"&active=true&bad=zz", nil)

	got, err := ParseQueryUUID(req, "pet_id")
	require.NoError(t, err)
	require.Equal(t, id, *got)

	missing, err := ParseQueryUUID(req, "owner_id")
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = ParseQueryUUID(req, "bad")
	require.Equal(t, "must be a valid id", fieldDetails(t, err)["bad"])

	active, err := ParseQueryBool(req, "active")
	require.NoError(t, err)
	require.True(t, *active)
}

func TestParseURLUUIDMalformedIsNotFound(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("petID", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := ParseURLUUID(req, "petID", "pet")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Rex"))
	if data != nil {
		part, err := mw.CreateFormFile(field, "upload.bin")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReadImageSniffsContentType(t *testing.T) {
	req := multipartRequest(t, "image", pngBytes)
	require.True(t, IsMultipart(req))
	require.NoError(t, ParseMultipart(httptest.NewRecorder(), req, 1<<20))

	img, err := ReadImage(req, "image", 1<<20)
	require.NoError(t, err)
	require.Equal(t, "image/png", img.ContentType)
	require.Equal(t, ".png", img.Extension)
	require.Equal(t, "Rex", req.FormValue("name"))
}

func TestReadImageRejectsNonImages(t *testing.T) {
	req := multipartRequest(t, "image", []byte("%PDF-1.4 not an image"))
	require.NoError(t, ParseMultipart(httptest.NewRecorder(), req, 1<<20))

	_, err := ReadImage(req, "image", 1<<20)
	require.Contains(t, fieldDetails(t, err)["image"], "must be a jpeg")
}

func TestReadImageOptional(t *testing.T) {
	req := multipartRequest(t, "image", nil)
	require.NoError(t, ParseMultipart(httptest.NewRecorder(), req, 1<<20))

	img, err := ReadImage(req, "image", 1<<20)
	require.NoError(t, err)
	require.Nil(t, img)
}

func TestReadImageTooLarge(t *testing.T) {
	big := append(append([]byte{}, pngBytes...), make([]byte, 64)...)
	req := multipartRequest(t, "image", big)
	require.NoError(t, ParseMultipart(httptest.NewRecorder(), req, 1<<20))

	_, err := ReadImage(req, "image", 32)
	require.Contains(t, fieldDetails(t, err)["image"], "at most 32 bytes")
}
