package iam

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceAccountKey holds the authorized key material issued for a service account.
type ServiceAccountKey struct {
	ID               string `json:"id"`
	ServiceAccountID string `json:"service_account_id"`
	PrivateKey       string `json:"private_key"`
}

// LoadServiceAccountKey reads and parses an authorized key file.
func LoadServiceAccountKey(path string) (ServiceAccountKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ServiceAccountKey{}, fmt.Errorf("read service account key file: %w", err)
	}

	var key ServiceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return ServiceAccountKey{}, fmt.Errorf("parse service account key file: %w", err)
	}
	if key.ID == "" || key.ServiceAccountID == "" || key.PrivateKey == "" {
		return ServiceAccountKey{}, fmt.Errorf("service account key file %s is incomplete", path)
	}

	return key, nil
}

// ServiceAccountAcquirer builds a signed assertion for a service account and
// exchanges it for a bearer credential.
type ServiceAccountAcquirer struct {
	endpoint  string
	accountID string
	keyID     string
	key       *rsa.PrivateKey
	client    *http.Client
	now       func() time.Time
}

// NewServiceAccountAcquirer parses the key material up front so malformed keys
// fail at startup rather than on the first refresh.
func NewServiceAccountAcquirer(endpoint string, key ServiceAccountKey) (*ServiceAccountAcquirer, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}

	return &ServiceAccountAcquirer{
		endpoint:  endpoint,
		accountID: key.ServiceAccountID,
		keyID:     key.ID,
		key:       privateKey,
		client:    &http.Client{Timeout: 15 * time.Second},
		now:       time.Now,
	}, nil
}

// Acquire signs a fresh assertion and exchanges it for a bearer credential.
func (a *ServiceAccountAcquirer) Acquire(ctx context.Context) (Credential, error) {
	assertion, err := a.signedAssertion()
	if err != nil {
		return Credential{}, fmt.Errorf("sign service account assertion: %w", err)
	}

	payload := map[string]string{"jwt": assertion}
	return exchange(ctx, a.client, a.endpoint, payload, a.now().UTC())
}

func (a *ServiceAccountAcquirer) signedAssertion() (string, error) {
	now := a.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodPS256, jwt.RegisteredClaims{
		Issuer:    a.accountID,
		Audience:  jwt.ClaimStrings{a.endpoint},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	token.Header["kid"] = a.keyID

	return token.SignedString(a.key)
}
