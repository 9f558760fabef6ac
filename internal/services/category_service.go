package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ports"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultCategoryIcon is used for categories created on the fly.
const DefaultCategoryIcon = "tag"

var (
	lowerPT = cases.Lower(language.BrazilianPortuguese)
	upperPT = cases.Upper(language.BrazilianPortuguese)
)

// NormalizeCategoryName puts a free-form category in canonical form: NFC,
// single spaces, first letter upper case and the rest lower case.
// "  SUPERMERCADO  extra " becomes "Supermercado extra".
func NormalizeCategoryName(name string) string {
	name = strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	if name == "" {
		return ""
	}
	lowered := lowerPT.String(name)
	r, size := utf8.DecodeRuneInString(lowered)
	return upperPT.String(string(r)) + lowered[size:]
}

type CategoryService struct {
	store ports.CategoryStore
	cache cache.Cache[core.Category]
}

// NewCategoryService builds the service; c may be nil to disable caching.
func NewCategoryService(store ports.CategoryStore, c cache.Cache[core.Category]) *CategoryService {
	return &CategoryService{store: store, cache: c}
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	cats, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Get(ctx context.Context, ownerID, id string) (*core.Category, error) {
	c, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	return c, nil
}

// FindOrCreate resolves name to a category visible to ownerID, creating an
// owner category when none exists.
func (s *CategoryService) FindOrCreate(ctx context.Context, ownerID, name string) (*core.Category, error) {
	normalized := NormalizeCategoryName(name)
	if normalized == "" {
		return nil, core.NewValidationError("category", "must not be empty")
	}

	key := cache.Key(ownerID, strings.ToLower(normalized))
	if s.cache != nil {
		if c, ok := s.cache.Get(key); ok {
			return &c, nil
		}
	}

	c, err := s.store.FindByName(ctx, ownerID, normalized)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotFound):
		c = &core.Category{OwnerID: ownerID, Name: normalized, Icon: DefaultCategoryIcon}
		if err := s.store.Create(ctx, c); err != nil {
			if !errors.Is(err, core.ErrConflict) {
				return nil, fmt.Errorf("create category %q: %w", normalized, err)
			}
			// Lost a race with a concurrent create.
			if c, err = s.store.FindByName(ctx, ownerID, normalized); err != nil {
				return nil, fmt.Errorf("find category %q: %w", normalized, err)
			}
		}
	default:
		return nil, fmt.Errorf("find category %q: %w", normalized, err)
	}

	if s.cache != nil {
		s.cache.Set(key, *c)
	}
	return c, nil
}

// Update renames or re-icons one of the owner's categories. Global
// categories are not owned by anyone and report core.ErrNotFound.
func (s *CategoryService) Update(ctx context.Context, ownerID, id, name, icon string) (*core.Category, error) {
	c, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	if c.IsGlobal || c.OwnerID != ownerID {
		return nil, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if name != "" {
		if c.Name = NormalizeCategoryName(name); c.Name == "" {
			return nil, core.NewValidationError("name", "must not be empty")
		}
	}
	if icon != "" {
		c.Icon = icon
	}
	if err := s.store.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category %s: %w", id, err)
	}
	if s.cache != nil {
		s.cache.DeletePrefix(cache.Key(ownerID, ""))
	}
	return c, nil
}
