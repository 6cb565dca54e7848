package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/appointments"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/types"
)

// appointmentRequest carries both create and edit bodies. Date is RFC 3339.
type appointmentRequest struct {
	UserID      *uuid.UUID               `json:"user"`
	PetID       *uuid.UUID               `json:"pet"`
	Purpose     *string                  `json:"purpose"`
	Remarks     *string                  `json:"remarks"`
	Date        *time.Time               `json:"date"`
	Status      *enums.AppointmentStatus `json:"status"`
	AssignedVet types.NullableUUID       `json:"assigned_vet"`
}

type appointmentStatusRequest struct {
	Status      *enums.AppointmentStatus `json:"status"`
	AssignedVet types.NullableUUID       `json:"assigned_vet"`
}

func AppointmentList(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("appointments"))
			return
		}

		var input appointments.ListInput
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := enums.AppointmentStatus(raw)
			if !status.IsValid() {
				writeError(w, r, logg, pkgerrors.FieldError("status", "invalid appointment status"))
				return
			}
			input.Status = &status
		}

		list, err := svc.List(r.Context(), actorFrom(r), input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AppointmentCreate books an appointment. Status is decided by the server.
func AppointmentCreate(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("appointments"))
			return
		}
		var req appointmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			writeError(w, r, logg, err)
			return
		}

		created, err := svc.Create(r.Context(), actorFrom(r), appointments.CreateInput{
			UserID:      req.UserID,
			PetID:       req.PetID,
			Purpose:     req.Purpose,
			Remarks:     req.Remarks,
			Date:        req.Date,
			AssignedVet: req.AssignedVet,
		})
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AppointmentGet(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("appointments"))
			return
		}
		id, err := validators.ParseURLUUID(r, "appointmentID", "appointment")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		detail, err := svc.Get(r.Context(), actorFrom(r), id)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func AppointmentEdit(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("appointments"))
			return
		}
		id, err := validators.ParseURLUUID(r, "appointmentID", "appointment")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		var req appointmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			writeError(w, r, logg, err)
			return
		}

		updated, err := svc.Edit(r.Context(), actorFrom(r), id, appointments.EditInput{
			UserID:      req.UserID,
			PetID:       req.PetID,
			Purpose:     req.Purpose,
			Remarks:     req.Remarks,
			Date:        req.Date,
			Status:      req.Status,
			AssignedVet: req.AssignedVet,
		})
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AppointmentStatus(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("appointments"))
			return
		}
		id, err := validators.ParseURLUUID(r, "appointmentID", "appointment")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		var req appointmentStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			writeError(w, r, logg, err)
			return
		}

		updated, err := svc.UpdateStatus(r.Context(), actorFrom(r), id, appointments.StatusInput{
			Status:      req.Status,
			AssignedVet: req.AssignedVet,
		})
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
