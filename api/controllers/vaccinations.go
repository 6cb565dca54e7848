package controllers

import (
	"net/http"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// VaccinationList filters by pet_id, vaccine_id and owner_id query params.
func VaccinationList(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccinations"))
			return
		}

		var input vaccines.ListVaccinationsInput
		var err error
		if input.PetID, err = validators.ParseQueryUUID(r, "pet_id"); err != nil {
			writeError(w, r, logg, err)
			return
		}
		if input.VaccineID, err = validators.ParseQueryUUID(r, "vaccine_id"); err != nil {
			writeError(w, r, logg, err)
			return
		}
		if input.OwnerID, err = validators.ParseQueryUUID(r, "owner_id"); err != nil {
			writeError(w, r, logg, err)
			return
		}

		list, err := svc.ListVaccinations(r.Context(), actorFrom(r), input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func VaccinationCreate(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccinations"))
			return
		}
		var input vaccines.VaccinationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			writeError(w, r, logg, err)
			return
		}

		created, err := svc.CreateVaccination(r.Context(), actorFrom(r), input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func VaccinationGet(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccinations"))
			return
		}
		id, err := validators.ParseURLUUID(r, "vaccinationID", "vaccination")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		record, err := svc.GetVaccination(r.Context(), actorFrom(r), id)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func VaccinationUpdate(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccinations"))
			return
		}
		id, err := validators.ParseURLUUID(r, "vaccinationID", "vaccination")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		var input vaccines.VaccinationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			writeError(w, r, logg, err)
			return
		}

		updated, err := svc.UpdateVaccination(r.Context(), actorFrom(r), id, input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func VaccinationDelete(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccinations"))
			return
		}
		id, err := validators.ParseURLUUID(r, "vaccinationID", "vaccination")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		if err := svc.DeleteVaccination(r.Context(), actorFrom(r), id); err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
