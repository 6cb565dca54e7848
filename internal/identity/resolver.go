package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pkgauth "github.com/petcare/vetclinic-backend/pkg/auth"
	"github.com/petcare/vetclinic-backend/pkg/auth/session"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Session is the result of resolving a token: the caller and its session key.
type Session struct {
	Actor    Actor
	AccessID string
}

// Resolver turns a session token into an Actor.
type Resolver struct {
	jwtCfg   config.JWTConfig
	sessions session.Resolver
	users    userLoader
}

// NewResolver wires the token, session and user lookups.
func NewResolver(jwtCfg config.JWTConfig, sessions session.Resolver, users userLoader) (*Resolver, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session resolver is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader is required")
	}
	return &Resolver{jwtCfg: jwtCfg, sessions: sessions, users: users}, nil
}

// Resolve validates token, checks the live session and reloads the user so
// role and active changes apply immediately.
func (r *Resolver) Resolve(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgauth.ParseAccessToken(r.jwtCfg, token)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	userID, err := r.sessions.Resolve(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if userID != claims.UserID {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session mismatch")
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is disabled")
	}
	if !user.Role.IsValid() {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account has no valid role")
	}

	return Session{
		Actor:    NewActor(user.ID, user.Role),
		AccessID: claims.ID,
	}, nil
}
