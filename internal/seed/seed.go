// Package seed installs the default global category catalogue.
package seed

import (
	_ "embed"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var embeddedCatalogue []byte

// SystemOwner owns the global categories.
const SystemOwner = "system"

type CategoryEntry struct {
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
}

type Catalogue struct {
	Owner      string          `yaml:"owner"`
	Categories []CategoryEntry `yaml:"categories"`
}

// Parse reads a catalogue and rejects blank or duplicate names.
func Parse(data []byte) (Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalogue{}, fmt.Errorf("parse category catalogue: %w", err)
	}
	if c.Owner == "" {
		c.Owner = SystemOwner
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for i, e := range c.Categories {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return Catalogue{}, fmt.Errorf("category %d: name cannot be empty", i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return Catalogue{}, fmt.Errorf("category %d: duplicate name %q", i, name)
		}
		seen[key] = struct{}{}
		c.Categories[i].Name = name
	}
	return c, nil
}

// Default returns the embedded catalogue.
func Default() (Catalogue, error) {
	return Parse(embeddedCatalogue)
}

// Apply creates every catalogue entry missing from store and returns how
// many were created. Existing names are left untouched.
func Apply(ctx context.Context, store ports.CategoryStore, c Catalogue) (int, error) {
	created := 0
	for _, e := range c.Categories {
		existing, err := store.FindByName(ctx, c.Owner, e.Name)
		if err == nil && existing.IsGlobal {
			continue
		}
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return created, fmt.Errorf("look up category %q: %w", e.Name, err)
		}

		cat := core.Category{OwnerID: c.Owner, Name: e.Name, Icon: e.Icon, IsGlobal: true}
		if err := store.Create(ctx, &cat); err != nil {
			if errors.Is(err, core.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("create category %q: %w", e.Name, err)
		}
		created++
	}

	slog.InfoContext(ctx, "Category catalogue applied",
		"owner_id", c.Owner,
		"created", created,
		"total", len(c.Categories))
	return created, nil
}
