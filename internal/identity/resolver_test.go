package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pkgauth "github.com/petcare/vetclinic-backend/pkg/auth"
	"github.com/petcare/vetclinic-backend/pkg/auth/session"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSessions struct {
	byAccess map[string]uuid.UUID
	err      error
}

func (f fakeSessions) Resolve(_ context.Context, accessID string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	id, ok := f.byAccess[accessID]
	if !ok {
		return uuid.Nil, session.ErrSessionNotFound
	}
	return id, nil
}

type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

var resolverJWT = config.JWTConfig{Secret: "secret", Issuer: "petcare", ExpirationMinutes: 60}

func mint(t *testing.T, userID uuid.UUID, jti string) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(resolverJWT, time.Now(), pkgauth.AccessTokenPayload{UserID: userID, Role: enums.RoleClient, JTI: jti})
	require.NoError(t, err)
	return token
}

func TestResolverResolvesCurrentRole(t *testing.T) {
	userID := uuid.New()
	// role changed to vet after the token was minted as client
	users := fakeUsers{userID: {ID: userID, Role: enums.RoleVet, IsActive: true}}
	resolver, err := NewResolver(resolverJWT, fakeSessions{byAccess: map[string]uuid.UUID{"s1": userID}}, users)
	require.NoError(t, err)

	sess, err := resolver.Resolve(context.Background(), mint(t, userID, "s1"))
	require.NoError(t, err)
	require.Equal(t, "s1", sess.AccessID)
	require.True(t, sess.Actor.IsVet())
	require.Equal(t, userID, sess.Actor.UserID)
}

func TestResolverFailures(t *testing.T) {
	userID := uuid.New()
	inactiveID := uuid.New()
	users := fakeUsers{
		userID:     {ID: userID, Role: enums.RoleClient, IsActive: true},
		inactiveID: {ID: inactiveID, Role: enums.RoleClient, IsActive: false},
	}
	sessions := fakeSessions{byAccess: map[string]uuid.UUID{
		"live":     userID,
		"inactive": inactiveID,
		"other":    uuid.New(),
	}}
	resolver, err := NewResolver(resolverJWT, sessions, users)
	require.NoError(t, err)
	ctx := context.Background()

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"logged out":     mint(t, userID, "revoked"),
		"inactive":       mint(t, inactiveID, "inactive"),
		"session of other user": mint(t, userID, "other"),
	}
	for name, token := range cases {
		_, err := resolver.Resolve(ctx, token)
		require.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "%s: %v", name, err)
	}

	down, err := NewResolver(resolverJWT, fakeSessions{err: errors.New("redis down")}, users)
	require.NoError(t, err)
	_, err = down.Resolve(ctx, mint(t, userID, "live"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
