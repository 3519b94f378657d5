package main

import (
	"strings"
	"testing"
)

func TestLoadServeConfigRefusesUnsafeProduction(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/bridge")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := loadServeConfig(); err == nil {
		t.Fatal("expected serve to refuse production config without JWT_SECRET")
	}

	t.Setenv("JWT_SECRET", "short")
	if _, err := loadServeConfig(); err == nil {
		t.Fatal("expected serve to refuse a short JWT_SECRET")
	}

	t.Setenv("JWT_SECRET", strings.Repeat("k", 32))
	if _, err := loadServeConfig(); err != nil {
		t.Fatalf("expected valid production config to load, got %v", err)
	}
}

func TestCommandTree(t *testing.T) {
	for want, got := range map[string]string{
		"serve": serveCmd().Use,
		"token": tokenCmd().Use,
	} {
		if got != want {
			t.Errorf("Use = %q, want %q", got, want)
		}
	}

	migrate := migrateCmd()
	for _, sub := range []string{"up", "status"} {
		found := false
		for _, c := range migrate.Commands() {
			if c.Use == sub {
				found = true
			}
		}
		if !found {
			t.Errorf("migrate is missing subcommand %q", sub)
		}
	}

	tenant := tenantCmd()
	if len(tenant.Commands()) == 0 || tenant.Commands()[0].Use != "create" {
		t.Error("tenant is missing the create subcommand")
	}
}
