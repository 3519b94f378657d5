package transmission

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vitaluxe/pharmacy-bridge/internal/domain/pharmacy"
)

type tokenProviderFunc func(ctx context.Context, pharmacyID uuid.UUID) (string, error)

func (f tokenProviderFunc) FetchToken(ctx context.Context, pharmacyID uuid.UUID) (string, error) {
	return f(ctx, pharmacyID)
}

func cred(t, v string) *pharmacy.Credential {
	return &pharmacy.Credential{CredentialType: t, Value: v}
}

func TestBuildHeaders(t *testing.T) {
	staticToken := tokenProviderFunc(func(context.Context, uuid.UUID) (string, error) {
		return "delegated-tok", nil
	})

	keyName := "X-Vendor-Key"
	cases := []struct {
		name    string
		ph      pharmacy.Pharmacy
		creds   []*pharmacy.Credential
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "bearer",
			ph:    pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeBearer},
			creds: []*pharmacy.Credential{cred(pharmacy.CredentialBearerToken, "tok-1")},
			want:  map[string]string{"Authorization": "Bearer tok-1"},
		},
		{
			name:    "bearer missing credential",
			ph:      pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeBearer},
			wantErr: true,
		},
		{
			name:  "api key default header",
			ph:    pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeAPIKey},
			creds: []*pharmacy.Credential{cred(pharmacy.CredentialAPIKey, "k-1")},
			want:  map[string]string{"X-API-Key": "k-1"},
		},
		{
			name:  "api key custom header",
			ph:    pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeAPIKey, APIAuthKeyName: &keyName},
			creds: []*pharmacy.Credential{cred(pharmacy.CredentialAPIKey, "k-2")},
			want:  map[string]string{"X-Vendor-Key": "k-2"},
		},
		{
			name: "basic",
			ph:   pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeBasic},
			creds: []*pharmacy.Credential{
				cred(pharmacy.CredentialBasicAuthUsername, "user"),
				cred(pharmacy.CredentialBasicAuthPassword, "pass"),
			},
			// base64("user:pass")
			want: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
		},
		{
			name:    "basic missing password",
			ph:      pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeBasic},
			creds:   []*pharmacy.Credential{cred(pharmacy.CredentialBasicAuthUsername, "user")},
			wantErr: true,
		},
		{
			name: "baremeds",
			ph:   pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeBareMeds},
			want: map[string]string{"Authorization": "Bearer delegated-tok"},
		},
		{
			name: "no auth type is permissive",
			ph:   pharmacy.Pharmacy{},
			want: map[string]string{},
		},
		{
			name: "unknown auth type is permissive",
			ph:   pharmacy.Pharmacy{APIAuthType: "mtls"},
			want: map[string]string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := NewCredentialResolver(staticToken)
			headers, err := resolver.BuildHeaders(context.Background(), &tc.ph, tc.creds)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildHeaders: %v", err)
			}
			if headers["Content-Type"] != "application/json" {
				t.Errorf("Content-Type = %q", headers["Content-Type"])
			}
			for k, v := range tc.want {
				if headers[k] != v {
					t.Errorf("headers[%q] = %q, want %q", k, headers[k], v)
				}
			}
			if len(headers) != len(tc.want)+1 {
				t.Errorf("unexpected extra headers: %v", headers)
			}
		})
	}
}

func TestBuildHeadersTokenFetchFailure(t *testing.T) {
	failing := tokenProviderFunc(func(context.Context, uuid.UUID) (string, error) {
		return "", errors.New("token endpoint returned HTTP 503")
	})
	resolver := NewCredentialResolver(failing)
	_, err := resolver.BuildHeaders(context.Background(),
		&pharmacy.Pharmacy{APIAuthType: pharmacy.AuthTypeBareMeds}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestBareMedsTokenProvider(t *testing.T) {
	pharmacyID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer svc-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"access_token":"tok-xyz"}`))
	}))
	defer srv.Close()

	p := NewBareMedsTokenProvider(srv.URL, "svc-key", 5*time.Second)
	tok, err := p.FetchToken(context.Background(), pharmacyID)
	if err != nil {
		t.Fatalf("FetchToken: %v", err)
	}
	if tok != "tok-xyz" {
		t.Errorf("token = %q", tok)
	}
}

func TestBareMedsTokenProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"secret":"should never surface"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewBareMedsTokenProvider(srv.URL, "svc-key", 5*time.Second)
	_, err := p.FetchToken(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "token endpoint returned HTTP 403" {
		t.Errorf("error = %q", got)
	}
}
