package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultTokenTTL is assumed when the identity endpoint omits an expiry.
const defaultTokenTTL = time.Hour

type tokenResponse struct {
	IAMToken  string `json:"iamToken"`
	ExpiresAt string `json:"expiresAt"`
}

// exchange posts the given payload to the identity endpoint and parses the
// returned bearer token. A 401 means the long-lived secret itself is bad;
// any other non-2xx status is a transient acquisition failure the caller
// may retry.
func exchange(ctx context.Context, client *http.Client, endpoint string, payload any, now time.Time) (Credential, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Credential{}, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("call identity endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Credential{}, fmt.Errorf("identity endpoint rejected secret: %w", ErrInvalidCredential)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, fmt.Errorf("identity endpoint returned status %d", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return Credential{}, fmt.Errorf("decode token response: %w", err)
	}
	if parsed.IAMToken == "" {
		return Credential{}, fmt.Errorf("identity endpoint returned empty token")
	}

	expiresAt := now.Add(defaultTokenTTL)
	if parsed.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, parsed.ExpiresAt); err == nil {
			expiresAt = t
		}
	}

	return Credential{Token: parsed.IAMToken, ExpiresAt: expiresAt}, nil
}
