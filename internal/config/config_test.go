package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SHOP_NAME", "")
	t.Setenv("CURRENCY", "")
	t.Setenv("CATALOG_TTL_SECONDS", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ShopName != "WR Smile & Supplies" || cfg.Currency != "LKR" {
		t.Fatalf("unexpected shop defaults: %q %q", cfg.ShopName, cfg.Currency)
	}
	if cfg.CatalogTTLSeconds != 60 || cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("unexpected TTL defaults: %d %d", cfg.CatalogTTLSeconds, cfg.AccessTokenTTLMinutes)
	}
	// No fallback secret: startup validation decides what to do with it.
	if cfg.AuthSecret != "" {
		t.Fatalf("auth secret must not default, got %q", cfg.AuthSecret)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("CATALOG_TTL_SECONDS", "not-a-number")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.CatalogTTLSeconds != 60 || cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("bad values must fall back to defaults: %d %d", cfg.CatalogTTLSeconds, cfg.AccessTokenTTLMinutes)
	}
}

func TestAddress(t *testing.T) {
	cfg := Config{Port: "9090"}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}
