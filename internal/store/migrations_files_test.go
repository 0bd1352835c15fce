package store

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// Every migration version ships as an up/down pair so a bad deploy can be
// rolled back.
func TestMigrationsComeInUpDownPairs(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("..", "..", "db", "migrations"))
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	type pair struct{ up, down bool }
	versions := map[string]*pair{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version := versions[match[1]]
		if version == nil {
			version = &pair{}
			versions[match[1]] = version
		}
		switch match[2] {
		case "up":
			if version.up {
				t.Fatalf("duplicate up migration for version %s", match[1])
			}
			version.up = true
		case "down":
			if version.down {
				t.Fatalf("duplicate down migration for version %s", match[1])
			}
			version.down = true
		}
	}

	if len(versions) == 0 {
		t.Fatal("no migration files discovered")
	}
	for v, p := range versions {
		if !p.up {
			t.Errorf("version %s is missing its up migration", v)
		}
		if !p.down {
			t.Errorf("version %s is missing its down migration", v)
		}
	}
}
