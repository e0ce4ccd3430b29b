package migrations

import (
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"000001_recommendations.up.sql":   {Data: []byte("CREATE TABLE recommendations ();")},
		"000001_recommendations.down.sql": {Data: []byte("DROP TABLE recommendations;")},
		"000002_audit.up.sql":             {Data: []byte("CREATE TABLE audit ();")},
		"000002_audit.down.sql":           {Data: []byte("DROP TABLE audit;")},
		"000010_sessions.up.sql":          {Data: []byte("CREATE TABLE sessions ();")},
		"000010_sessions.down.sql":        {Data: []byte("DROP TABLE sessions;")},
	}
}

func TestScanVersions(t *testing.T) {
	t.Run("returns sorted versions from up files", func(t *testing.T) {
		versions, err := ScanVersions(testFS())
		if err != nil {
			t.Fatalf("ScanVersions() error = %v", err)
		}

		want := []string{"000001", "000002", "000010"}
		if len(versions) != len(want) {
			t.Fatalf("ScanVersions() = %v, want %v", versions, want)
		}
		for i, v := range want {
			if versions[i] != v {
				t.Errorf("versions[%d] = %q, want %q", i, versions[i], v)
			}
		}
	})

	t.Run("ignores files outside the naming convention", func(t *testing.T) {
		fsys := testFS()
		fsys["README.md"] = &fstest.MapFile{Data: []byte("notes")}
		fsys["schema.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}
		fsys["abc_bad_version.up.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}

		versions, err := ScanVersions(fsys)
		if err != nil {
			t.Fatalf("ScanVersions() error = %v", err)
		}
		if len(versions) != 3 {
			t.Errorf("ScanVersions() = %v, want 3 versions", versions)
		}
	})

	t.Run("empty filesystem yields no versions", func(t *testing.T) {
		versions, err := ScanVersions(fstest.MapFS{})
		if err != nil {
			t.Fatalf("ScanVersions() error = %v", err)
		}
		if len(versions) != 0 {
			t.Errorf("ScanVersions() = %v, want empty", versions)
		}
	})
}

func TestFindFile(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		direction Direction
		want      string
		wantErr   bool
	}{
		{"up file", "000001", DirectionUp, "000001_recommendations.up.sql", false},
		{"down file", "000001", DirectionDown, "000001_recommendations.down.sql", false},
		{"later version", "000010", DirectionUp, "000010_sessions.up.sql", false},
		{"unknown version", "000099", DirectionUp, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFile(testFS(), tt.version, tt.direction)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FindFile() expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FindFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	versions, err := ScanVersions(Files())
	if err != nil {
		t.Fatalf("ScanVersions(Files()) error = %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no embedded migrations found")
	}

	// Every version ships as an up/down pair.
	for _, v := range versions {
		if _, err := FindFile(Files(), v, DirectionUp); err != nil {
			t.Errorf("missing up file for %s: %v", v, err)
		}
		if _, err := FindFile(Files(), v, DirectionDown); err != nil {
			t.Errorf("missing down file for %s: %v", v, err)
		}
	}
}
