// Package store defines the catalog store contract consumed by the import
// pipeline and provides PostgreSQL (gorm) and MongoDB implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names a group of catalog documents
type Collection string

const (
	CollectionProducts   Collection = "products"
	CollectionBrands     Collection = "brands"
	CollectionCategories Collection = "categories"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotFound          = errors.New("document not found")
)

// Filter matches documents whose fields equal every given value.
// An empty filter matches all documents.
type Filter map[string]interface{}

// Document is a catalog record keyed by its JSON field names
type Document map[string]interface{}

// ID returns the document identifier or "" when absent
func (d Document) ID() string {
	return d.String("id")
}

// String returns the string value stored under key or ""
func (d Document) String(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// CatalogStore is the persistence contract used by the import pipeline
type CatalogStore interface {
	Find(ctx context.Context, collection Collection, filter Filter) ([]Document, error)
	Create(ctx context.Context, collection Collection, data Document) (Document, error)
	Update(ctx context.Context, collection Collection, id string, data Document) (Document, error)
	Delete(ctx context.Context, collection Collection, filter Filter) (int64, error)
}

// Upserter is implemented by stores that can atomically find a document by a
// unique key or create it. created reports whether this call inserted it.
type Upserter interface {
	FindOrCreate(ctx context.Context, collection Collection, key Filter, data Document) (doc Document, created bool, err error)
}

// ToDocument converts a tagged struct into a Document
func ToDocument(v interface{}) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// DecodeDocument fills v from doc. Fields absent from doc keep their current values.
func DecodeDocument(doc Document, v interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
