package migrations

import (
	"io/fs"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	if len(entries) == 0 || entries[0].Name() != "001_attempts.sql" {
		t.Fatalf("migrations = %v, want 001_attempts.sql first", entries)
	}
}
