// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/osborn-app/dashboard/internal/rentalapi"
)

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}
	if len(upFiles) == 0 {
		t.Fatal("no migration files found")
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_EndpointEnumMatchesClient keeps the preference ENUM in sync
// with the endpoints the rental client can list. A value missing from the
// ENUM makes saving that preference fail with "Data truncated" (Error 1265).
func TestMigrations_EndpointEnumMatchesClient(t *testing.T) {
	data, err := os.ReadFile(filepath.Join(migrationsDir(t), "000001_timeline_preferences.up.sql"))
	if err != nil {
		t.Fatal(err)
	}

	enum := regexp.MustCompile(`endpoint\s+ENUM\(([^)]*)\)`).FindStringSubmatch(string(data))
	if enum == nil {
		t.Fatal("endpoint ENUM not found")
	}
	var values []string
	for _, m := range regexp.MustCompile(`'([^']+)'`).FindAllStringSubmatch(enum[1], -1) {
		values = append(values, m[1])
	}

	var want []string
	for _, e := range rentalapi.Endpoints() {
		want = append(want, string(e))
	}
	sort.Strings(values)
	sort.Strings(want)
	if strings.Join(values, ",") != strings.Join(want, ",") {
		t.Errorf("ENUM values %v do not match client endpoints %v", values, want)
	}
}

// TestMigrations_PreferenceColumns checks the columns the preference
// repository reads and writes.
func TestMigrations_PreferenceColumns(t *testing.T) {
	data, err := os.ReadFile(filepath.Join(migrationsDir(t), "000001_timeline_preferences.up.sql"))
	if err != nil {
		t.Fatal(err)
	}
	for _, col := range []string{"user_id", "endpoint", "type_filter", "location_id", "updated_at"} {
		if !regexp.MustCompile(`(?m)^\s*` + col + `\s`).Match(data) {
			t.Errorf("column %s missing from timeline_preferences", col)
		}
	}
}

// TestMigrations_AuditColumns checks the columns the audit repository uses.
func TestMigrations_AuditColumns(t *testing.T) {
	data, err := os.ReadFile(filepath.Join(migrationsDir(t), "000002_audit_log.up.sql"))
	if err != nil {
		t.Fatal(err)
	}
	for _, col := range []string{"id", "user_id", "user_name", "action", "endpoint", "period", "details", "created_at"} {
		if !regexp.MustCompile(`(?m)^\s*` + col + `\s`).Match(data) {
			t.Errorf("column %s missing from audit_log", col)
		}
	}
}

func TestMigrationSource(t *testing.T) {
	fsys, dir := MigrationSource(migrationsDir(t))
	if dir != "." {
		t.Errorf("expected the on-disk directory, got %q", dir)
	}
	if _, err := fs.Stat(fsys, "000001_timeline_preferences.up.sql"); err != nil {
		t.Errorf("expected migration on disk: %v", err)
	}

	fsys, dir = MigrationSource(filepath.Join(t.TempDir(), "missing"))
	if dir != "migrations" {
		t.Fatalf("expected embedded migrations, got %q", dir)
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil || len(entries) == 0 {
		t.Errorf("expected embedded migration files, got %d (%v)", len(entries), err)
	}
}

func TestWaitForPing(t *testing.T) {
	calls := 0
	err := waitForPing(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("expected one successful ping, got %d calls and %v", calls, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = waitForPing(ctx, func(context.Context) error { return errors.New("refused") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the wait to stop with the context, got %v", err)
	}
}
