package iam

import (
	"context"
	"net/http"
	"time"
)

// OAuthAcquirer exchanges a long-lived OAuth token for a bearer credential.
type OAuthAcquirer struct {
	endpoint   string
	oauthToken string
	client     *http.Client
	now        func() time.Time
}

// NewOAuthAcquirer constructs an acquirer that posts the OAuth token to the
// identity endpoint.
func NewOAuthAcquirer(endpoint, oauthToken string) *OAuthAcquirer {
	return &OAuthAcquirer{
		endpoint:   endpoint,
		oauthToken: oauthToken,
		client:     &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// Acquire fetches a fresh bearer credential using the OAuth exchange flow.
func (a *OAuthAcquirer) Acquire(ctx context.Context) (Credential, error) {
	payload := map[string]string{"yandexPassportOauthToken": a.oauthToken}
	return exchange(ctx, a.client, a.endpoint, payload, a.now().UTC())
}
