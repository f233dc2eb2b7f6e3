package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("RENTAL_API_URL", "http://upstream.test/api/v1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeline.ColumnWidth != 64 || cfg.Timeline.RowHeight != 40 {
		t.Errorf("geometry = %dx%d, want 64x40", cfg.Timeline.ColumnWidth, cfg.Timeline.RowHeight)
	}
	if cfg.Timeline.MinRows != 5 {
		t.Errorf("MinRows = %d, want 5", cfg.Timeline.MinRows)
	}
	if cfg.RentalAPI.BaseURL != "http://upstream.test/api/v1" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.RentalAPI.BaseURL)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Error("expected dev default JWT secret")
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RENTAL_API_URL", "http://upstream.test")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is empty in production")
	}
}

func TestLoad_RejectsBadTimezone(t *testing.T) {
	t.Setenv("TIMELINE_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TIMELINE_TIMEZONE") {
		t.Fatalf("err = %v, want timezone error", err)
	}
}

func TestTimelineConfig_Location(t *testing.T) {
	loc := TimelineConfig{Timezone: "Asia/Jakarta"}.Location()
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 7*3600 {
		t.Errorf("offset = %d, want +7h", offset)
	}

	if got := (TimelineConfig{Timezone: "nope"}).Location(); got != time.UTC {
		t.Errorf("fallback = %v, want UTC", got)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p@ss", Name: "dash"}
	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db:3306)") {
		t.Errorf("dsn %q missing default port", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("dsn %q missing parseTime", dsn)
	}

	d.dsnOverride = "override"
	if d.DSN() != "override" {
		t.Error("DATABASE_URL override not honoured")
	}
}

func TestLoad_ImageOrigins(t *testing.T) {
	t.Setenv("RENTAL_IMAGE_ORIGINS", " https://cdn.rental.test, ,https://img.rental.test ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"https://cdn.rental.test", "https://img.rental.test"}
	if strings.Join(cfg.RentalAPI.ImageOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("ImageOrigins = %v, want %v", cfg.RentalAPI.ImageOrigins, want)
	}
}
