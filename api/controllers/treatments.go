package controllers

import (
	"net/http"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/treatments"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

func TreatmentList(svc treatments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("treatments"))
			return
		}
		appointmentID, err := validators.ParseURLUUID(r, "appointmentID", "appointment")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		list, err := svc.List(r.Context(), actorFrom(r), appointmentID)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// TreatmentRecord stores the batch and completes the appointment.
func TreatmentRecord(svc treatments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("treatments"))
			return
		}
		appointmentID, err := validators.ParseURLUUID(r, "appointmentID", "appointment")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		var input treatments.RecordInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			writeError(w, r, logg, err)
			return
		}

		result, err := svc.Record(r.Context(), actorFrom(r), appointmentID, input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
