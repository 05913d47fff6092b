package importer

import (
	"context"

	"catalog-service/internal/models"
	"catalog-service/internal/store"
	"github.com/sirupsen/logrus"
)

// References holds the ids a product row resolved to
type References struct {
	BrandID          string
	CategoryID       string
	BrandCreated     bool
	CategoryCreated  bool
	SubcategoryAdded bool
}

// Resolver makes sure the brand, category and subcategory named by a row
// exist, creating them on first sight. Nothing is cached between calls.
type Resolver struct {
	store  store.CatalogStore
	logger *logrus.Entry
}

func NewResolver(s store.CatalogStore, logger *logrus.Entry) *Resolver {
	return &Resolver{store: s, logger: logger}
}

// Resolve looks up or creates the referenced taxonomy. Empty names are skipped.
func (r *Resolver) Resolve(ctx context.Context, brand, category, subcategory string) (*References, error) {
	refs := &References{}

	if brand != "" {
		id, created, err := r.resolveBrand(ctx, brand)
		if err != nil {
			return nil, err
		}
		refs.BrandID, refs.BrandCreated = id, created
	}

	if category != "" {
		id, created, added, err := r.resolveCategory(ctx, category, subcategory)
		if err != nil {
			return nil, err
		}
		refs.CategoryID, refs.CategoryCreated, refs.SubcategoryAdded = id, created, added
	}

	return refs, nil
}

func (r *Resolver) resolveBrand(ctx context.Context, name string) (string, bool, error) {
	doc, created, err := r.findOrCreate(ctx, store.CollectionBrands, name, store.Document{
		"name": name,
		"slug": Slugify(name),
	})
	if err != nil {
		return "", false, err
	}
	if created {
		r.logger.WithFields(logrus.Fields{"brand": name, "brand_id": doc.ID()}).Info("Created brand")
	}
	return doc.ID(), created, nil
}

func (r *Resolver) resolveCategory(ctx context.Context, name, subcategory string) (string, bool, bool, error) {
	subs := []interface{}{}
	if subcategory != "" {
		subs = append(subs, subcategoryDocument(subcategory))
	}

	doc, created, err := r.findOrCreate(ctx, store.CollectionCategories, name, store.Document{
		"name":          name,
		"slug":          Slugify(name),
		"subcategories": subs,
	})
	if err != nil {
		return "", false, false, err
	}
	if created {
		r.logger.WithFields(logrus.Fields{"category": name, "category_id": doc.ID()}).Info("Created category")
		return doc.ID(), true, false, nil
	}
	if subcategory == "" {
		return doc.ID(), false, false, nil
	}

	var cat models.Category
	if err := store.DecodeDocument(doc, &cat); err != nil {
		return "", false, false, &PersistenceError{Op: "decode", Collection: string(store.CollectionCategories), Err: err}
	}
	if cat.HasSubcategory(subcategory) {
		return doc.ID(), false, false, nil
	}

	merged := make([]interface{}, 0, len(cat.Subcategories)+1)
	for _, s := range cat.Subcategories {
		merged = append(merged, map[string]interface{}{"name": s.Name, "slug": s.Slug})
	}
	merged = append(merged, subcategoryDocument(subcategory))

	if _, err := r.store.Update(ctx, store.CollectionCategories, doc.ID(), store.Document{"subcategories": merged}); err != nil {
		return "", false, false, &PersistenceError{Op: "update", Collection: string(store.CollectionCategories), Err: err}
	}
	r.logger.WithFields(logrus.Fields{"category": name, "subcategory": subcategory}).Info("Added subcategory")
	return doc.ID(), false, true, nil
}

// findOrCreate uses the store's atomic upsert when it has one and falls back
// to find-then-create, which can race with a concurrent import.
func (r *Resolver) findOrCreate(ctx context.Context, collection store.Collection, name string, data store.Document) (store.Document, bool, error) {
	key := store.Filter{"name": name}

	if up, ok := r.store.(store.Upserter); ok {
		doc, created, err := up.FindOrCreate(ctx, collection, key, data)
		if err != nil {
			return nil, false, &PersistenceError{Op: "find or create", Collection: string(collection), Err: err}
		}
		return doc, created, nil
	}

	docs, err := r.store.Find(ctx, collection, key)
	if err != nil {
		return nil, false, &PersistenceError{Op: "find", Collection: string(collection), Err: err}
	}
	if len(docs) > 0 {
		return docs[0], false, nil
	}

	doc, err := r.store.Create(ctx, collection, data)
	if err != nil {
		return nil, false, &PersistenceError{Op: "create", Collection: string(collection), Err: err}
	}
	return doc, true, nil
}

func subcategoryDocument(name string) map[string]interface{} {
	return map[string]interface{}{"name": name, "slug": Slugify(name)}
}
