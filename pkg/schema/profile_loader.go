package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the on-disk YAML form of a schema. Deployments can drop
// schema_<name>.yaml files next to the binary to extend the registry without
// recompiling; built-in schemas cannot be overridden.
type Profile struct {
	Name     string              `yaml:"name"`
	Fields   []Field             `yaml:"fields"`
	Synonyms map[string][]string `yaml:"synonyms,omitempty"`
}

// LoadProfile parses a single schema profile file.
func LoadProfile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load schema profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse schema profile %s: %w", path, err)
	}
	if p.Name == "" {
		// schema_orders.yaml -> orders
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(strings.TrimPrefix(base, "schema_"), ".yaml")
	}
	synonyms := DefaultSynonyms()
	for field, syns := range p.Synonyms {
		synonyms[field] = append(synonyms[field], syns...)
	}
	return New(p.Name, p.Fields, synonyms)
}

// LoadProfiles registers every schema_*.yaml under dir. Built-in names are
// skipped so a stray profile cannot change bootstrap semantics.
func (r *Registry) LoadProfiles(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "schema_*.yaml"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		s, err := LoadProfile(path)
		if err != nil {
			return err
		}
		if _, exists := r.schemas[s.Name]; exists {
			continue
		}
		r.register(s)
	}
	return nil
}
