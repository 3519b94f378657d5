package pharmacy

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validAuthTypes = map[string]bool{
	"": true, AuthTypeBearer: true, AuthTypeAPIKey: true,
	AuthTypeBasic: true, AuthTypeBareMeds: true,
}

var validCredentialTypes = map[string]bool{
	CredentialBearerToken: true, CredentialAPIKey: true,
	CredentialBasicAuthUsername: true, CredentialBasicAuthPassword: true,
}

func validateEndpointURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func (s *Service) validate(p *Pharmacy) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validAuthTypes[p.APIAuthType] {
		return fmt.Errorf("invalid api_auth_type: %s", p.APIAuthType)
	}
	if p.APIEndpointURL != nil && *p.APIEndpointURL != "" {
		if err := validateEndpointURL(*p.APIEndpointURL); err != nil {
			return err
		}
	}
	if p.APIEnabled && !p.HasEndpoint() {
		return fmt.Errorf("api_endpoint_url is required when api_enabled is true")
	}
	if p.RetryCount < 0 || p.RetryCount > 10 {
		return fmt.Errorf("retry_count must be between 0 and 10, got %d", p.RetryCount)
	}
	if p.TimeoutSeconds < 0 || p.TimeoutSeconds > 120 {
		return fmt.Errorf("timeout_seconds must be between 0 and 120, got %d", p.TimeoutSeconds)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Pharmacy) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Pharmacy) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Pharmacy, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// SetCredential upserts one credential value for a pharmacy.
func (s *Service) SetCredential(ctx context.Context, pharmacyID uuid.UUID, credentialType, value string) error {
	if !validCredentialTypes[credentialType] {
		return fmt.Errorf("invalid credential_type: %s", credentialType)
	}
	if value == "" {
		return fmt.Errorf("value is required")
	}
	if _, err := s.repo.GetByID(ctx, pharmacyID); err != nil {
		return fmt.Errorf("pharmacy not found")
	}
	return s.repo.SetCredential(ctx, &Credential{
		PharmacyID:     pharmacyID,
		CredentialType: credentialType,
		Value:          value,
	})
}
