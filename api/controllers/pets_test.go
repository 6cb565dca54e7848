package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/internal/pets"
	"github.com/petcare/vetclinic-backend/pkg/enums"
)

var testPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
}

type stubPetsService struct {
	pets.Service
	listInput pets.ListPetsInput
	created   *pets.PetInput
	image     *images.Upload
}

func (s *stubPetsService) List(_ context.Context, _ identity.Actor, input pets.ListPetsInput) ([]pets.PetDTO, error) {
	s.listInput = input
	return []pets.PetDTO{}, nil
}

func (s *stubPetsService) Create(_ context.Context, _ identity.Actor, input pets.PetInput) (*pets.PetDTO, error) {
	s.created = &input
	return &pets.PetDTO{ID: uuid.New()}, nil
}

func (s *stubPetsService) SetImage(_ context.Context, _ identity.Actor, id uuid.UUID, upload images.Upload) (*pets.PetDTO, error) {
	s.image = &upload
	return &pets.PetDTO{ID: id}, nil
}

func petForm(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile(imageField, "pet.png")
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPetListOwnerFilter(t *testing.T) {
	svc := &stubPetsService{}
	owner := uuid.New()
	req, _ := withActor(jsonRequest(http.MethodGet, "/api/v1/pets?owner_id="+owner.String(), ""), enums.RoleStaff)

	rec := serve(PetList(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listInput.OwnerID == nil || *svc.listInput.OwnerID != owner {
		t.Fatalf("expected owner filter")
	}
}

func TestPetCreateJSON(t *testing.T) {
	svc := &stubPetsService{}
	req, _ := withActor(jsonRequest(http.MethodPost, "/api/v1/pets",
		`{"name":"Rex","gender":"Male","neutered_status":true,"birth_date":"2020-05-01"}`), enums.RoleClient)

	rec := serve(PetCreate(svc, 1<<20, nil), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	in := svc.created
	if in == nil || *in.Name != "Rex" || *in.Gender != enums.PetGenderMale || !*in.NeuteredStatus {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.Image != nil {
		t.Fatalf("expected no image")
	}
}

func TestPetCreateMultipartWithImage(t *testing.T) {
	svc := &stubPetsService{}
	req := petForm(t, map[string]string{
		"name":            "Mia",
		"gender":          "Female",
		"neutered_status": "false",
	}, testPNG)
	req, _ = withActor(req, enums.RoleClient)

	rec := serve(PetCreate(svc, 1<<20, nil), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	in := svc.created
	if in.NeuteredStatus == nil || *in.NeuteredStatus {
		t.Fatalf("expected neutered_status false, got %v", in.NeuteredStatus)
	}
	if in.Image == nil || in.Image.ContentType != "image/png" {
		t.Fatalf("expected png upload, got %+v", in.Image)
	}
}

func TestPetCreateMultipartBadBool(t *testing.T) {
	svc := &stubPetsService{}
	req := petForm(t, map[string]string{"name": "Mia", "neutered_status": "perhaps"}, nil)
	req, _ = withActor(req, enums.RoleClient)

	rec := serve(PetCreate(svc, 1<<20, nil), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.created != nil {
		t.Fatalf("service should not be called")
	}
}

func TestPetSetImageRequiresFile(t *testing.T) {
	svc := &stubPetsService{}
	id := uuid.New()

	req := petForm(t, map[string]string{}, nil)
	req, _ = withActor(req, enums.RoleClient)
	req = withURLParam(req, "petID", id.String())
	rec := serve(PetSetImage(svc, 1<<20, nil), req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Details[imageField] != "is required" {
		t.Fatalf("unexpected details %v", body.Details)
	}

	req = petForm(t, map[string]string{}, testPNG)
	req, _ = withActor(req, enums.RoleClient)
	req = withURLParam(req, "petID", id.String())
	rec = serve(PetSetImage(svc, 1<<20, nil), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.image == nil || svc.image.Extension != ".png" {
		t.Fatalf("expected png upload")
	}
}
