package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/petcare/vetclinic-backend/pkg/config"
)

const storageScope = "https://www.googleapis.com/auth/devstorage.read_write"

// signer holds the service account key used for V2 signed URLs. Workload
// identity and metadata credentials have no key and cannot sign.
type signer struct {
	email string
	key   *rsa.PrivateKey
}

func (s *signer) sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
}

// credentialsJSON prefers inline JSON over a key file path. Empty means
// application default credentials.
func credentialsJSON(gcp config.GCPConfig) ([]byte, error) {
	if gcp.CredentialsJSON != "" {
		return []byte(gcp.CredentialsJSON), nil
	}
	if gcp.ApplicationCredentials == "" {
		return nil, nil
	}
	data, err := os.ReadFile(gcp.ApplicationCredentials)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return data, nil
}

func loadCredentials(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, *signer, error) {
	raw, err := credentialsJSON(gcp)
	if err != nil {
		return nil, nil, err
	}
	if raw == nil {
		ts, err := google.DefaultTokenSource(ctx, storageScope)
		if err != nil {
			return nil, nil, fmt.Errorf("default gcp credentials: %w", err)
		}
		return ts, nil, nil
	}

	jwtCfg, err := google.JWTConfigFromJSON(raw, storageScope)
	if err != nil {
		return nil, nil, fmt.Errorf("parse service account: %w", err)
	}
	key, err := parsePrivateKey(jwtCfg.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	return jwtCfg.TokenSource(ctx), &signer{email: jwtCfg.Email, key: key}, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("service account key is not PEM encoded")
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if key, ok := parsed.(*rsa.PrivateKey); ok {
			return key, nil
		}
		return nil, errors.New("service account key is not RSA")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return key, nil
}
