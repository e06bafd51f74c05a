package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
)

var migrationsDir = filepath.Join("..", "..", "db", "migrations")

func TestEveryUpMigrationHasADown(t *testing.T) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d{4})_[a-z_]+\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}
	for _, entry := range entries {
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			t.Fatalf("unexpected file in migrations dir: %s", entry.Name())
		}
		if byVersion[match[1]] == nil {
			byVersion[match[1]] = map[string]bool{}
		}
		if byVersion[match[1]][match[2]] {
			t.Fatalf("duplicate %s migration for version %s", match[2], match[1])
		}
		byVersion[match[1]][match[2]] = true
	}
	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}
	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestMigrationsCreateStoreTables(t *testing.T) {
	files, err := upMigrations(os.DirFS(migrationsDir))
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	var all strings.Builder
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		all.Write(raw)
	}
	for _, table := range []string{"users", "refresh_sessions", "revoked_access_tokens", "profiles", "profile_documents"} {
		if !strings.Contains(all.String(), "CREATE TABLE "+table+" ") {
			t.Errorf("no migration creates %s", table)
		}
	}
}

func TestUpMigrationsAreOrderedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0010_later.up.sql":    {Data: []byte("SELECT 1;")},
		"0002_second.up.sql":   {Data: []byte("SELECT 1;")},
		"0002_second.down.sql": {Data: []byte("SELECT 1;")},
		"0001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"README.md":            {Data: []byte("notes")},
		"archive/0000.up.sql":  {Data: []byte("SELECT 1;")},
	}
	files, err := upMigrations(fsys)
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	want := []string{"0001_first.up.sql", "0002_second.up.sql", "0010_later.up.sql"}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", files, want)
	}
}
