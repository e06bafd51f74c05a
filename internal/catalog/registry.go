package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownVersion is returned when neither the requested version nor
	// any fallback is registered.
	ErrUnknownVersion = errors.New("unknown catalogue version")
	// ErrAlreadyInstalled is returned by Install when a registry is already active.
	ErrAlreadyInstalled = errors.New("catalogue registry already installed")
	// ErrDuplicateVersion is returned when two schemas share a version key.
	ErrDuplicateVersion = errors.New("duplicate catalogue version")
)

// Registry is an immutable set of schema versions with an explicit
// fallback order. Safe for concurrent use.
type Registry struct {
	versions map[string]*Schema
	fallback []string
	warnings map[string][]string
}

// NewRegistry indexes schemas by version and validates each one. Fallback
// entries that are not registered are dropped; when fallback is empty the
// versions are used in lexical order.
func NewRegistry(schemas []*Schema, fallback []string, opts ValidateOptions) (*Registry, error) {
	r := &Registry{
		versions: make(map[string]*Schema, len(schemas)),
		warnings: make(map[string][]string, len(schemas)),
	}
	for _, schema := range schemas {
		if schema == nil {
			continue
		}
		if _, exists := r.versions[schema.Version]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, schema.Version)
		}
		r.versions[schema.Version] = schema
		r.warnings[schema.Version] = Validate(schema, opts)
	}

	for _, version := range fallback {
		if _, ok := r.versions[version]; ok {
			r.fallback = append(r.fallback, version)
		}
	}
	if len(r.fallback) == 0 {
		r.fallback = r.Versions()
	}
	return r, nil
}

// Lookup returns the requested version, or the first registered version
// in fallback order when version is empty or unknown.
func (r *Registry) Lookup(version string) (*Schema, error) {
	if schema, ok := r.versions[version]; ok {
		return schema, nil
	}
	for _, candidate := range r.fallback {
		if schema, ok := r.versions[candidate]; ok {
			return schema, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
}

// Exact returns a version without applying the fallback order.
func (r *Registry) Exact(version string) (*Schema, bool) {
	schema, ok := r.versions[version]
	return schema, ok
}

// Default returns the first schema in fallback order.
func (r *Registry) Default() (*Schema, error) {
	return r.Lookup("")
}

// Versions lists registered versions in lexical order.
func (r *Registry) Versions() []string {
	out := make([]string, 0, len(r.versions))
	for version := range r.versions {
		out = append(out, version)
	}
	sort.Strings(out)
	return out
}

// Fallback returns the effective fallback order.
func (r *Registry) Fallback() []string {
	return append([]string(nil), r.fallback...)
}

// Warnings returns the validator output recorded for version.
func (r *Registry) Warnings(version string) []string {
	return append([]string(nil), r.warnings[version]...)
}

// AllWarnings returns every version's warnings prefixed with the version.
func (r *Registry) AllWarnings() []string {
	var out []string
	for _, version := range r.Versions() {
		for _, warning := range r.warnings[version] {
			out = append(out, fmt.Sprintf("[%s] %s", version, warning))
		}
	}
	return out
}

var (
	installMu sync.RWMutex
	installed *Registry
)

// Install makes r the process-wide registry. It may be called once.
func Install(r *Registry) error {
	installMu.Lock()
	defer installMu.Unlock()
	if installed != nil {
		return ErrAlreadyInstalled
	}
	installed = r
	return nil
}

// Installed returns the process-wide registry, or nil before Install.
func Installed() *Registry {
	installMu.RLock()
	defer installMu.RUnlock()
	return installed
}
