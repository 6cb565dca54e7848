package controllers

import (
	"net/http"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

func VaccineList(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccines"))
			return
		}
		list, err := svc.List(r.Context(), actorFrom(r))
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func VaccineCreate(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccines"))
			return
		}
		var input vaccines.VaccineInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			writeError(w, r, logg, err)
			return
		}

		created, err := svc.Create(r.Context(), actorFrom(r), input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func VaccineGet(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccines"))
			return
		}
		id, err := validators.ParseURLUUID(r, "vaccineID", "vaccine")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		vaccine, err := svc.Get(r.Context(), actorFrom(r), id)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, vaccine)
	}
}

func VaccineUpdate(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccines"))
			return
		}
		id, err := validators.ParseURLUUID(r, "vaccineID", "vaccine")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		var input vaccines.VaccineInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			writeError(w, r, logg, err)
			return
		}

		updated, err := svc.Update(r.Context(), actorFrom(r), id, input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func VaccineDelete(svc vaccines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("vaccines"))
			return
		}
		id, err := validators.ParseURLUUID(r, "vaccineID", "vaccine")
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
