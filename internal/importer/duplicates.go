package importer

import (
	"context"

	"catalog-service/internal/store"
)

// DuplicateDetector reports products that already exist under the same exact name
type DuplicateDetector struct {
	store store.CatalogStore
}

func NewDuplicateDetector(s store.CatalogStore) *DuplicateDetector {
	return &DuplicateDetector{store: s}
}

func (d *DuplicateDetector) IsDuplicate(ctx context.Context, name string) (bool, error) {
	docs, err := d.store.Find(ctx, store.CollectionProducts, store.Filter{"name": name})
	if err != nil {
		return false, &PersistenceError{Op: "find", Collection: string(store.CollectionProducts), Err: err}
	}
	return len(docs) > 0, nil
}
