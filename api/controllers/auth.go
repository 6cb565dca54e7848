package controllers

import (
	"net/http"
	"strings"

	"github.com/petcare/vetclinic-backend/api/middleware"
	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/auth"
	"github.com/petcare/vetclinic-backend/internal/users"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// AuthRegister creates a client account from JSON or multipart input.
func AuthRegister(svc auth.Service, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("auth"))
			return
		}

		var req auth.RegisterRequest
		upload, err := decodeBody(w, r, maxUpload, &req)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		user, err := svc.Register(r.Context(), users.CreateUserInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Phone:     req.Phone,
			Role:      enums.RoleClient,
			Image:     upload,
		})
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// AuthLogin exchanges credentials for a bearer token. The token is also set
// as an HttpOnly cookie for browser clients.
func AuthLogin(svc auth.Service, secureCookie bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("auth"))
			return
		}

		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			writeError(w, r, logg, err)
			return
		}

		resp, err := svc.Login(r.Context(), req)
		if err != nil {
			writeError(w, r, logg, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    resp.AccessToken,
			Path:     "/",
			Expires:  resp.ExpiresAt,
			HttpOnly: true,
			Secure:   secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteSuccess(w, resp)
	}
}

// AuthLogout revokes the session behind the current token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("auth"))
			return
		}

		if err := svc.Logout(r.Context(), middleware.AccessIDFromContext(r.Context())); err != nil {
			writeError(w, r, logg, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		responses.WriteNoContent(w)
	}
}

func AuthProfile(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeError(w, r, logg, unavailable("auth"))
			return
		}

		profile, err := svc.Profile(r.Context(), actorFrom(r))
		if err != nil {
			writeError(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
