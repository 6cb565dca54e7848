package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/users"
	pkgAuth "github.com/petcare/vetclinic-backend/pkg/auth"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, input users.CreateUserInput) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
	Profile(ctx context.Context, actor identity.Actor) (*users.UserDetailDTO, error)
}

type service struct {
	users    userRepository
	accounts users.Service
	session  sessionManager
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	now      func() time.Time
	decoy    func() (string, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	Accounts       users.Service
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	// Hasher produces a decoy hash so unknown emails cost as much as a wrong
	// password. Optional.
	Hasher         *security.Hasher
	Logger         *logger.Logger
	Clock          func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("users service is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	svc := &service{
		users:    params.UserRepo,
		accounts: params.Accounts,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
		logg:     params.Logger,
		now:      clock,
	}
	if h := params.Hasher; h != nil {
		svc.decoy = sync.OnceValues(func() (string, error) { return h.Hash(uuid.NewString()) })
	}
	return svc, nil
}

// Register opens a client account. The role is always client here; staff
// create other roles through the users endpoints.
func (s *service) Register(ctx context.Context, input users.CreateUserInput) (*users.UserDTO, error) {
	return s.accounts.Register(ctx, input)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	accessID, err := s.session.Create(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	tokenPayload := pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	}
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, tokenPayload)
	if err != nil {
		if revokeErr := s.session.Revoke(ctx, accessID); revokeErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", revokeErr.Error()), "auth.session_revoke_failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(s.jwtCfg.SessionTTL()),
		User:        users.FromModel(user),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Profile(ctx context.Context, actor identity.Actor) (*users.UserDetailDTO, error) {
	if err := actor.RequireAuthenticated(); err != nil {
		return nil, err
	}
	return s.accounts.Get(ctx, actor, actor.UserID)
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := models.NormalizeEmail(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if db.IsNotFound(err) {
		s.burnDecoy(password)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// burnDecoy runs one verification against a throwaway hash.
func (s *service) burnDecoy(password string) {
	if s.decoy == nil {
		return
	}
	if hash, err := s.decoy(); err == nil {
		_, _ = security.VerifyPassword(password, hash)
	}
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}
