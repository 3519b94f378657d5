package transmission

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/vitaluxe/pharmacy-bridge/internal/domain/pharmacy"
)

// TokenProvider fetches a short-lived access token for pharmacies whose auth
// is delegated to an external token service. Tokens are fetched fresh per
// transmission and never cached or persisted.
type TokenProvider interface {
	FetchToken(ctx context.Context, pharmacyID uuid.UUID) (string, error)
}

// CredentialResolver turns a pharmacy's auth configuration and stored
// credentials into the headers for an outbound request.
type CredentialResolver struct {
	tokens TokenProvider
}

func NewCredentialResolver(tokens TokenProvider) *CredentialResolver {
	return &CredentialResolver{tokens: tokens}
}

// BuildHeaders returns the header set for an outbound push to the pharmacy.
// Content-Type is always application/json; the auth header depends on the
// configured auth type. A configured auth type whose credential is missing is
// an error; an unknown or empty auth type sends no auth header at all.
func (r *CredentialResolver) BuildHeaders(ctx context.Context, ph *pharmacy.Pharmacy, creds []*pharmacy.Credential) (map[string]string, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	byType := make(map[string]string, len(creds))
	for _, c := range creds {
		byType[c.CredentialType] = c.Value
	}

	switch ph.APIAuthType {
	case pharmacy.AuthTypeBearer:
		token, ok := byType[pharmacy.CredentialBearerToken]
		if !ok || token == "" {
			return nil, fmt.Errorf("pharmacy %s: bearer auth configured but no bearer_token credential", ph.ID)
		}
		headers["Authorization"] = "Bearer " + token

	case pharmacy.AuthTypeAPIKey:
		key, ok := byType[pharmacy.CredentialAPIKey]
		if !ok || key == "" {
			return nil, fmt.Errorf("pharmacy %s: api_key auth configured but no api_key credential", ph.ID)
		}
		headers[ph.APIKeyHeaderName()] = key

	case pharmacy.AuthTypeBasic:
		user, userOK := byType[pharmacy.CredentialBasicAuthUsername]
		pass, passOK := byType[pharmacy.CredentialBasicAuthPassword]
		if !userOK || !passOK || user == "" {
			return nil, fmt.Errorf("pharmacy %s: basic auth configured but username/password credentials incomplete", ph.ID)
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		headers["Authorization"] = "Basic " + encoded

	case pharmacy.AuthTypeBareMeds:
		if r.tokens == nil {
			return nil, fmt.Errorf("pharmacy %s: baremeds auth configured but no token provider available", ph.ID)
		}
		token, err := r.tokens.FetchToken(ctx, ph.ID)
		if err != nil {
			return nil, fmt.Errorf("pharmacy %s: token fetch failed: %w", ph.ID, err)
		}
		headers["Authorization"] = "Bearer " + token
	}

	return headers, nil
}
