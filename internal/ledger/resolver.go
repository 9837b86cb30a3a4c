// Package ledger turns transaction requests into stored records: it
// resolves free-text category names to per-user categories and validates
// and persists transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ledgerlens/internal/cache"
	"ledgerlens/internal/core"
	"ledgerlens/internal/store"
)

// NormalizeCategoryName trims name and collapses internal whitespace runs
// to a single space.
func NormalizeCategoryName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Resolver finds or creates a user's category by name.
//
// Lookups are case-insensitive. Two concurrent first uses of the same new
// name may both insert; the store decides whether duplicates are allowed.
type Resolver struct {
	categories store.CategoryStore
	cache      cache.Cache[core.Category]
}

func NewResolver(categories store.CategoryStore) *Resolver {
	return &Resolver{categories: categories}
}

// WithCache serves repeat lookups from c. Category names are never
// rewritten once stored, so cached entries stay valid until evicted.
func (r *Resolver) WithCache(c cache.Cache[core.Category]) *Resolver {
	r.cache = c
	return r
}

func cacheKey(userID, name string) string {
	return userID + "\x00" + core.CategoryKey(name)
}

// Resolve returns the existing category matching rawName for userID, or
// creates it with the normalized name. Existing names are never rewritten.
func (r *Resolver) Resolve(ctx context.Context, userID, rawName string) (core.Category, error) {
	name := NormalizeCategoryName(rawName)
	if name == "" {
		return core.Category{}, &core.ValidationError{Field: "category", Err: core.ErrInvalidName}
	}

	key := cacheKey(userID, name)
	if r.cache != nil {
		if cat, ok := r.cache.Get(key); ok {
			return cat, nil
		}
	}

	existing, err := r.categories.FindCategoryByName(ctx, userID, name)
	switch {
	case err == nil:
		r.remember(key, existing)
		return existing, nil
	case !errors.Is(err, store.ErrNoRows):
		return core.Category{}, fmt.Errorf("find category %q: %w", name, err)
	}

	created, err := r.categories.InsertCategory(ctx, userID, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}

	slog.InfoContext(ctx, "Category created",
		"category_id", created.ID,
		"category", created.Name)

	r.remember(key, created)
	return created, nil
}

func (r *Resolver) remember(key string, cat core.Category) {
	if r.cache != nil {
		r.cache.Set(key, cat)
	}
}
