package controllers

import (
	"net/http"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/users"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

type userCreateRequest struct {
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required"`
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	Phone     *string    `json:"phone"`
	Role      enums.Role `json:"role"`
	IsActive  *bool      `json:"is_active"`
}

type userUpdateRequest struct {
	Email     *string     `json:"email" validate:"omitempty,email"`
	Password  *string     `json:"password"`
	FirstName *string     `json:"first_name"`
	LastName  *string     `json:"last_name"`
	Phone     *string     `json:"phone"`
	Role      *enums.Role `json:"role"`
	IsActive  *bool       `json:"is_active"`
}

func UserList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("users"))
			return
		}

		input := users.ListUsersInput{}
		if raw := r.URL.Query().Get("role"); raw != "" {
			role := enums.Role(raw)
			input.Role = &role
		}
		active, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		input.Active = active

		list, err := svc.List(r.Context(), actorFrom(r), input)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UserCreate lets staff create accounts of any role.
func UserCreate(svc users.Service, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("users"))
			return
		}

		var req userCreateRequest
		upload, err := decodeBody(w, r, maxUpload, &req, "is_active")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		created, err := svc.Create(r.Context(), actorFrom(r), users.CreateUserInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Role:      req.Role,
			IsActive:  req.IsActive,
			Image:     upload,
		})
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func UserGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("users"))
			return
		}
		id, err := validators.ParseURLUUID(r, "userID", "user")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		user, err := svc.Get(r.Context(), actorFrom(r), id)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func UserUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("users"))
			return
		}
		id, err := validators.ParseURLUUID(r, "userID", "user")
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		var req userUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			writeError(w, r, logg, err)
			return
		}

		updated, err := svc.Update(r.Context(), actorFrom(r), id, users.UpdateUserInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Role:      req.Role,
			IsActive:  req.IsActive,
		})
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func UserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("users"))
			return
		}
		id, err := validators.ParseURLUUID(r, "userID", "user")
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

func UserSetImage(svc users.Service, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("users"))
			return
		}
		id, err := validators.ParseURLUUID(r, "userID", "user")
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
