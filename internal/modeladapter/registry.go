package modeladapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subtitlegen/internal/langtag"
)

// Template is a prompt value, not code: its text and a content-derived
// version are immutable once loaded (spec.md §4.5).
type Template struct {
	Language string
	Mode     langtag.Mode
	Version  string
	Text     string
}

// Registry is the immutable (language, mode) -> Template lookup table.
type Registry struct {
	templates map[string]Template
}

func registryKey(language string, mode langtag.Mode) string {
	return language + "|" + string(mode)
}

// LoadRegistry reads every "<language>.tmpl" and "<language>.sdh.tmpl"
// file in dir into a Registry. Standard-mode files carry no mode suffix;
// SDH-mode files carry ".sdh" before the extension.
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prompt template registry %s: %w", dir, err)
	}

	registry := &Registry{templates: map[string]Template{}}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}

		base := strings.TrimSuffix(entry.Name(), ".tmpl")
		mode := langtag.ModeStandard
		if strings.HasSuffix(base, ".sdh") {
			mode = langtag.ModeSDH
			base = strings.TrimSuffix(base, ".sdh")
		}
		language, err := langtag.Canonicalize(base)
		if err != nil {
			return nil, fmt.Errorf("template file %s has an invalid language code: %w", entry.Name(), err)
		}

		tmpl := Template{Language: language, Mode: mode, Text: string(data), Version: contentVersion(data)}
		registry.templates[registryKey(language, mode)] = tmpl
	}
	return registry, nil
}

// NewRegistry builds a Registry directly from in-memory templates, used
// by tests and by any caller that doesn't want a filesystem round trip.
func NewRegistry(templates []Template) *Registry {
	registry := &Registry{templates: map[string]Template{}}
	for _, tmpl := range templates {
		if tmpl.Version == "" {
			tmpl.Version = contentVersion([]byte(tmpl.Text))
		}
		registry.templates[registryKey(tmpl.Language, tmpl.Mode)] = tmpl
	}
	return registry
}

// Lookup returns the template for (language, mode), falling back to the
// standard-mode template for that language if no mode-specific one
// exists.
func (r *Registry) Lookup(language string, mode langtag.Mode) (Template, bool) {
	if tmpl, ok := r.templates[registryKey(language, mode)]; ok {
		return tmpl, true
	}
	if mode != langtag.ModeStandard {
		if tmpl, ok := r.templates[registryKey(language, langtag.ModeStandard)]; ok {
			return tmpl, true
		}
	}
	return Template{}, false
}

func contentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}
