package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/pets"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

type petRequest struct {
	UserID            *uuid.UUID       `json:"user_id"`
	Name              *string          `json:"name"`
	Gender            *enums.PetGender `json:"gender"`
	Breed             *string          `json:"breed"`
	Color             *string          `json:"color"`
	Allergies         *string          `json:"allergies"`
	Marks             *string          `json:"marks"`
	ChronicConditions *string          `json:"chronic_conditions"`
	NeuteredStatus    *bool            `json:"neutered_status"`
	BirthDate         *string          `json:"birth_date"`
}

func (p petRequest) toInput() pets.PetInput {
	return pets.PetInput{
		UserID:            p.UserID,
		Name:              p.Name,
		Gender:            p.Gender,
		Breed:             p.Breed,
		Color:             p.Color,
		Allergies:         p.Allergies,
		Marks:             p.Marks,
		ChronicConditions: p.ChronicConditions,
		NeuteredStatus:    p.NeuteredStatus,
		BirthDate:         p.BirthDate,
	}
}

// PetList returns the pets visible to the caller; staff and vets may filter by owner_id.
func PetList(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("pets"))
			return
		}
		ownerID, err := validators.ParseQueryUUID(r, "owner_id")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		list, err := svc.List(r.Context(), actorFrom(r), pets.ListPetsInput{OwnerID: ownerID})
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func PetCreate(svc pets.Service, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("pets"))
			return
		}

		var req petRequest
		upload, err := decodeBody(w, r, maxUpload, &req, "neutered_status")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		input := req.toInput()
		input.Image = upload

		created, err := svc.Create(r.Context(), actorFrom(r), input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func PetGet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("pets"))
			return
		}
		id, err := validators.ParseURLUUID(r, "petID", "pet")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		pet, err := svc.Get(r.Context(), actorFrom(r), id)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

func PetUpdate(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("pets"))
			return
		}
		id, err := validators.ParseURLUUID(r, "petID", "pet")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		var req petRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			writeError(w, r, logg, err)
			return
		}

		updated, err := svc.Update(r.Context(), actorFrom(r), id, req.toInput())
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func PetDelete(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("pets"))
			return
		}
		id, err := validators.ParseURLUUID(r, "petID", "pet")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		if err := svc.Delete(r.Context(), actorFrom(r), id); err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func PetSetImage(svc pets.Service, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("pets"))
			return
		}
		id, err := validators.ParseURLUUID(r, "petID", "pet")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		upload, err := requireImage(w, r, maxUpload)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		updated, err := svc.SetImage(r.Context(), actorFrom(r), id, *upload)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
