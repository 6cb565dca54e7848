package identity

import (
	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
)

// Actor is the resolved caller of a request. It is passed explicitly to every
// service method that makes a role or ownership decision.
type Actor struct {
	Authenticated bool
	UserID        uuid.UUID
	Role          enums.Role
}

// Anonymous is the zero actor; every predicate is false.
func Anonymous() Actor {
	return Actor{}
}

// NewActor builds an authenticated actor.
func NewActor(userID uuid.UUID, role enums.Role) Actor {
	return Actor{Authenticated: true, UserID: userID, Role: role}
}

func (a Actor) IsStaff() bool {
	return a.Authenticated && a.Role == enums.RoleStaff
}

func (a Actor) IsVet() bool {
	return a.Authenticated && a.Role == enums.RoleVet
}

func (a Actor) IsClient() bool {
	return a.Authenticated && a.Role == enums.RoleClient
}

// Is reports whether the actor is the given user.
func (a Actor) Is(userID uuid.UUID) bool {
	return a.Authenticated && a.UserID != uuid.Nil && a.UserID == userID
}

// RequireAuthenticated fails with an UNAUTHORIZED error for anonymous callers.
func (a Actor) RequireAuthenticated() error {
	if !a.Authenticated || a.UserID == uuid.Nil || !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

// RequireRole passes when the actor is authenticated with one of roles.
func (a Actor) RequireRole(roles ...enums.Role) error {
	if err := a.RequireAuthenticated(); err != nil {
		return err
	}
	for _, role := range roles {
		if a.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "your role does not allow this action")
}
