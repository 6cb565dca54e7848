package controllers

import (
	"net/http"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/catalog"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

func ServiceList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("services"))
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

func ServiceCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("services"))
			return
		}
		var input catalog.ServiceInput
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

func ServiceGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("services"))
			return
		}
		id, err := validators.ParseURLUUID(r, "serviceID", "service")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		service, err := svc.Get(r.Context(), actorFrom(r), id)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, service)
	}
}

func ServiceUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("services"))
			return
		}
		id, err := validators.ParseURLUUID(r, "serviceID", "service")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		var input catalog.ServiceInput
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

func ServiceDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("services"))
			return
		}
		id, err := validators.ParseURLUUID(r, "serviceID", "service")
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
