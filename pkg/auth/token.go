package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/petcare/vetclinic-backend/pkg/config"
)

const clockSkew = 30 * time.Second

var (
	signingMethod = jwt.SigningMethodHS256

	ErrMissingSecret = errors.New("jwt secret is required")
)

func checkConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return ErrMissingSecret
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return errors.New("jwt expiration minutes must be positive")
	}
	return nil
}

// MintAccessToken signs an HS256 token valid for cfg.SessionTTL() from now.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if payload.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.SessionTTL())),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry. Session revocation
// is checked by the caller.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return ParseAccessTokenAt(cfg, raw, time.Now())
}

// ParseAccessTokenAt is ParseAccessToken with expiry judged at now.
func ParseAccessTokenAt(cfg config.JWTConfig, raw string, now time.Time) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	claims := &AccessTokenClaims{}
	keyFunc := func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil }
	if _, err := jwt.ParseWithClaims(raw, claims, keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("access token has no user id")
	}
	return claims, nil
}
