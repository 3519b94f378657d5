package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newEchoContext(req *http.Request) echo.Context {
	e := echo.New()
	return e.NewContext(req, httptest.NewRecorder())
}

func TestExtractTenantID_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := newEchoContext(req)

	if got := extractTenantID(c, "default"); got != "default" {
		t.Errorf("extractTenantID = %q, want default", got)
	}
}

func TestExtractTenantID_Header(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "clinic_a")
	c := newEchoContext(req)

	if got := extractTenantID(c, "default"); got != "clinic_a" {
		t.Errorf("extractTenantID = %q, want clinic_a", got)
	}
}

func TestExtractTenantID_JWTClaimWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?tenant_id=query", nil)
	req.Header.Set("X-Tenant-ID", "header")
	c := newEchoContext(req)
	c.Set("jwt_tenant_id", "claim")

	if got := extractTenantID(c, "default"); got != "claim" {
		t.Errorf("extractTenantID = %q, want claim", got)
	}
}

func TestTenantIDPattern(t *testing.T) {
	valid := []string{"default", "clinic_a", "T1", "a_b_c_9"}
	invalid := []string{"", "a-b", "a.b", "a b", "x;DROP TABLE", "tenant'"}

	for _, id := range valid {
		if !tenantIDPattern.MatchString(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	for _, id := range invalid {
		if tenantIDPattern.MatchString(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
}

func TestConnFromContext_Nil(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Errorf("expected nil conn, got %v", conn)
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "clinic_a")
	if got := TenantFromContext(ctx); got != "clinic_a" {
		t.Errorf("TenantFromContext = %q", got)
	}
	if got := TenantFromContext(context.Background()); got != "" {
		t.Errorf("TenantFromContext on empty ctx = %q, want empty", got)
	}
}
