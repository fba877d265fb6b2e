package crud

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/models"
)

// Placeholders shown for references that cannot be resolved.
const (
	UnknownCategory    = "Unknown Category"
	UnknownSubcategory = "Unknown Subcategory"
)

// Lookups holds the parent collections of one render. Resolution is a
// linear scan, which is adequate for the taxonomy sizes the console shows.
type Lookups struct {
	Categories    []models.Category
	Subcategories []models.Subcategory
}

// CategoryName resolves a category id.
func (l Lookups) CategoryName(id string) string {
	for _, c := range l.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return UnknownCategory
}

// Subcategory resolves a subcategory id.
func (l Lookups) Subcategory(id string) (models.Subcategory, bool) {
	for _, s := range l.Subcategories {
		if s.ID == id {
			return s, true
		}
	}
	return models.Subcategory{}, false
}

// SubcategoryName resolves a subcategory id.
func (l Lookups) SubcategoryName(id string) string {
	if s, ok := l.Subcategory(id); ok {
		return s.Name
	}
	return UnknownSubcategory
}

// Taxonomy loads parent collections for the subcategory and item screens.
type Taxonomy struct {
	categories    Resource[models.Category]
	subcategories Resource[models.Subcategory]
	logger        *zap.Logger
}

// NewTaxonomy constructs a taxonomy loader.
func NewTaxonomy(categories Resource[models.Category], subcategories Resource[models.Subcategory], logger *zap.Logger) *Taxonomy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Taxonomy{categories: categories, subcategories: subcategories, logger: logger}
}

// Categories loads only the category collection.
func (t *Taxonomy) Categories(ctx context.Context, creds apiclient.Credentials) Lookups {
	var l Lookups
	categories, err := t.categories.List(ctx, creds)
	if err != nil {
		t.logger.Warn("category lookup failed", zap.Error(err))
		return l
	}
	l.Categories = categories
	return l
}

// Full loads categories and subcategories concurrently.
func (t *Taxonomy) Full(ctx context.Context, creds apiclient.Credentials) Lookups {
	var (
		l  Lookups
		wg sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.Categories = t.Categories(ctx, creds).Categories
	}()
	go func() {
		defer wg.Done()
		subcategories, err := t.subcategories.List(ctx, creds)
		if err != nil {
			t.logger.Warn("subcategory lookup failed", zap.Error(err))
			return
		}
		l.Subcategories = subcategories
	}()
	wg.Wait()
	return l
}

// CategoryExists reports whether id names a stored category. Listing errors
// are returned unchanged.
func (t *Taxonomy) CategoryExists(ctx context.Context, creds apiclient.Credentials, id string) (bool, error) {
	categories, err := t.categories.List(ctx, creds)
	if err != nil {
		return false, err
	}
	for _, c := range categories {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// SubcategoryExists reports whether id names a stored subcategory.
func (t *Taxonomy) SubcategoryExists(ctx context.Context, creds apiclient.Credentials, id string) (bool, error) {
	subcategories, err := t.subcategories.List(ctx, creds)
	if err != nil {
		return false, err
	}
	for _, s := range subcategories {
		if s.ID == id {
			return true, nil
		}
	}
	return false, nil
}
