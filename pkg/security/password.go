package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/petcare/vetclinic-backend/pkg/config"
)

const MinPasswordLength = 8

var (
	ErrInvalidHash = errors.New("invalid argon2id hash")
	b64            = base64.RawStdEncoding
)

// ArgonParams are the cost settings recorded inside every encoded hash, so
// changing config never invalidates existing passwords.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

func paramsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:        uint32(clamp(cfg.ArgonTime, 1, 10)),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:      uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p ArgonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// HashPassword encodes password in the PHC string format
// $argon2id$v=19$m=...,t=...,p=...$salt$key.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	params := paramsFromConfig(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := params.derive(password, salt)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.Memory, params.Time, params.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword re-derives the key with the parameters stored in encoded.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, params.derive(password, salt)) == 1, nil
}

func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	var params ArgonParams
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Parallelism); err != nil {
		return params, nil, nil, ErrInvalidHash
	}
	if params.Memory == 0 || params.Time == 0 || params.Parallelism == 0 {
		return params, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, ErrInvalidHash
	}
	params.SaltLen, params.KeyLen = uint32(len(salt)), uint32(len(key))
	return params, salt, key, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// ValidatePassword is the account password policy. The message is shown to
// the client as the field error.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be blank")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Hasher carries the configured cost so services do not depend on config.
type Hasher struct {
	params config.PasswordConfig
}

func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{params: cfg}
}

func (h *Hasher) Hash(password string) (string, error) {
	return HashPassword(password, h.params)
}

func (h *Hasher) Verify(password, encoded string) (bool, error) {
	return VerifyPassword(password, encoded)
}
