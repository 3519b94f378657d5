package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// BareMedsTokenProvider exchanges a service key for a per-pharmacy access
// token at the BareMeds token endpoint. Errors carry the HTTP status only;
// response bodies from the token service are never surfaced so a misbehaving
// endpoint cannot leak material into logs or audit rows.
type BareMedsTokenProvider struct {
	tokenURL   string
	serviceKey string
	client     *http.Client
}

func NewBareMedsTokenProvider(tokenURL, serviceKey string, timeout time.Duration) *BareMedsTokenProvider {
	return &BareMedsTokenProvider{
		tokenURL:   tokenURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

func (p *BareMedsTokenProvider) FetchToken(ctx context.Context, pharmacyID uuid.UUID) (string, error) {
	if p.tokenURL == "" || p.serviceKey == "" {
		return "", fmt.Errorf("baremeds token provider not configured")
	}

	body, err := json.Marshal(map[string]string{"pharmacy_id": pharmacyID.String()})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("token response decode failed: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}
	return out.AccessToken, nil
}
