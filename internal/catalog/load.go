package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.json data/*.yaml
var embedded embed.FS

// DefaultPattern matches catalogue files inside a directory tree.
const DefaultPattern = "**/*.{json,yaml,yml}"

// ErrNoSchemas is returned when a directory holds no catalogue files.
var ErrNoSchemas = errors.New("no catalogue files found")

// Decode parses a schema document. format is "json" or "yaml".
func Decode(data []byte, format string) (*Schema, error) {
	var schema Schema
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("decode json catalogue: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("decode yaml catalogue: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalogue format %q", format)
	}
	return &schema, nil
}

// LoadFile reads one catalogue file. A missing version defaults to the
// file's base name.
func LoadFile(filePath string) (*Schema, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", filePath, err)
	}
	return decodeNamed(data, filePath)
}

// LoadDir loads every file under dir matching pattern (doublestar syntax).
// Files are returned in lexical path order.
func LoadDir(dir, pattern string) ([]*Schema, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return loadFS(os.DirFS(dir), pattern, dir)
}

// LoadEmbedded returns the catalogue compiled into the binary.
func LoadEmbedded() ([]*Schema, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded catalogue: %w", err)
	}
	return loadFS(sub, DefaultPattern, "embedded")
}

func loadFS(fsys fs.FS, pattern, label string) ([]*Schema, error) {
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", pattern, label, err)
	}
	sort.Strings(matches)

	schemas := make([]*Schema, 0, len(matches))
	for _, match := range matches {
		data, err := fs.ReadFile(fsys, match)
		if err != nil {
			return nil, fmt.Errorf("read catalogue %s: %w", match, err)
		}
		schema, err := decodeNamed(data, match)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoSchemas, pattern, label)
	}
	return schemas, nil
}

func decodeNamed(data []byte, name string) (*Schema, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	schema, err := Decode(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if strings.TrimSpace(schema.Version) == "" {
		schema.Version = strings.TrimSuffix(path.Base(filepath.ToSlash(name)), filepath.Ext(name))
	}
	return schema, nil
}
