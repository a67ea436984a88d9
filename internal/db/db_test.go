package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrations_EmbeddedInPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir(migrations): %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("migration %s has no up file", v)
		}
	}
}

func TestMigrations_EditLogIsAppendOnly(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_initial_schema.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	sql := string(b)
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS edits", "BEFORE UPDATE OR DELETE ON edits", "users_email_key"} {
		if !strings.Contains(sql, want) {
			t.Errorf("initial schema missing %q", want)
		}
	}
}

func TestRunMigrations_InvalidDirection(t *testing.T) {
	if err := RunMigrations(nil, "sideways"); err == nil || !strings.Contains(err.Error(), "invalid migration direction") {
		t.Errorf("RunMigrations(sideways) = %v, want invalid direction error", err)
	}
}
