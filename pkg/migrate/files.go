package migrate

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe   = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	unsafeNameRe = regexp.MustCompile(`[^a-z0-9]+`)
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty <version>_<name>.sql file into dir.
func CreateSQLMigration(dir string, name string) (string, error) {
	return createSQLMigration(dir, name, time.Now())
}

func createSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	full := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.UTC().Format(versionLayout), slug))
	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", full, err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, migrationTemplate, slug); err != nil {
		return "", fmt.Errorf("write migration %q: %w", full, err)
	}
	return full, nil
}

// ValidateDir checks the migrations stored on disk under dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return ValidateFS(embedded, embeddedDir)
}

// ValidateFS requires every .sql file under root to be named
// <YYYYMMDDHHMMSS>_<name>.sql with a unique version and to declare both goose
// sections.
func ValidateFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read migrations %q: %w", root, err)
	}

	versions := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		match := fileNameRe.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, dup := versions[match[1]]; dup {
			return fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name)
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return fmt.Errorf("read migration %q: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !bytes.Contains(body, []byte(marker)) {
				return fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
	}
	return nil
}
