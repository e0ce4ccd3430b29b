// Package migrations provides versioned schema migrations applied at
// server startup. Migration files live on an fs.FS and follow the
// NNNNNN_name.up.sql / NNNNNN_name.down.sql naming convention; versions
// apply in ascending order.
package migrations

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Direction selects which side of a migration pair to execute.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ScanVersions returns the sorted set of migration versions on fsys,
// derived from the *.up.sql files.
func ScanVersions(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	versions := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, ok := parseVersion(entry.Name(), DirectionUp)
		if !ok {
			continue
		}
		versions[version] = true
	}

	result := make([]string, 0, len(versions))
	for v := range versions {
		result = append(result, v)
	}
	sort.Strings(result)
	return result, nil
}

// FindFile returns the file name for a version and direction, or an
// error when the migration pair is incomplete.
func FindFile(fsys fs.FS, version string, direction Direction) (string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseVersion(entry.Name(), direction); ok && v == version {
			return entry.Name(), nil
		}
	}

	return "", fmt.Errorf("migration file not found: %s.%s.sql", version, direction)
}

// parseVersion extracts the leading version from a migration file name.
// Names without the expected "<version>_<name>.<direction>.sql" shape are
// skipped rather than treated as errors, so stray files are harmless.
func parseVersion(name string, direction Direction) (string, bool) {
	suffix := "." + string(direction) + ".sql"
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}

	version, rest, found := strings.Cut(name, "_")
	if !found || version == "" || rest == "" {
		return "", false
	}
	for _, r := range version {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return version, true
}
