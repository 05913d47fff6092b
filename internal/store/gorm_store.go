package store

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is a CatalogStore backed by PostgreSQL through gorm.
// Each collection maps to the table of its model.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var gormCollections = map[Collection]gormCollection{
	CollectionProducts:   gormModel[models.Product]{},
	CollectionBrands:     gormModel[models.Brand]{},
	CollectionCategories: gormModel[models.Category]{},
}

func (s *GormStore) collection(name Collection) (gormCollection, error) {
	c, ok := gormCollections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// where translates a field filter into column conditions
func (s *GormStore) where(filter Filter) map[string]interface{} {
	conds := make(map[string]interface{}, len(filter))
	for field, value := range filter {
		conds[s.db.NamingStrategy.ColumnName("", field)] = value
	}
	return conds
}

func (s *GormStore) Find(ctx context.Context, collection Collection, filter Filter) ([]Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return c.find(s.db.WithContext(ctx), s.where(filter))
}

func (s *GormStore) Create(ctx context.Context, collection Collection, data Document) (Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return c.create(s.db.WithContext(ctx), data)
}

func (s *GormStore) Update(ctx context.Context, collection Collection, id string, data Document) (Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return c.update(s.db.WithContext(ctx), id, data)
}

func (s *GormStore) Delete(ctx context.Context, collection Collection, filter Filter) (int64, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.delete(s.db.WithContext(ctx), s.where(filter))
}

// FindOrCreate inserts with ON CONFLICT DO NOTHING and falls back to reading
// the existing row, so the unique index on the key decides the winner.
func (s *GormStore) FindOrCreate(ctx context.Context, collection Collection, key Filter, data Document) (Document, bool, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, false, err
	}
	return c.findOrCreate(s.db.WithContext(ctx), s.where(key), data)
}

type gormCollection interface {
	find(db *gorm.DB, conds map[string]interface{}) ([]Document, error)
	create(db *gorm.DB, data Document) (Document, error)
	update(db *gorm.DB, id string, data Document) (Document, error)
	delete(db *gorm.DB, conds map[string]interface{}) (int64, error)
	findOrCreate(db *gorm.DB, conds map[string]interface{}, data Document) (Document, bool, error)
}

type gormModel[T any] struct{}

func (gormModel[T]) find(db *gorm.DB, conds map[string]interface{}) ([]Document, error) {
	var rows []T
	query := db
	if len(conds) > 0 {
		query = query.Where(conds)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for i := range rows {
		doc, err := ToDocument(&rows[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (gormModel[T]) create(db *gorm.DB, data Document) (Document, error) {
	var row T
	if err := DecodeDocument(data, &row); err != nil {
		return nil, err
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, err
	}
	return ToDocument(&row)
}

func (gormModel[T]) update(db *gorm.DB, id string, data Document) (Document, error) {
	var row T
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	changes := make(Document, len(data))
	for k, v := range data {
		if k != "id" {
			changes[k] = v
		}
	}
	if err := DecodeDocument(changes, &row); err != nil {
		return nil, err
	}
	if err := db.Save(&row).Error; err != nil {
		return nil, err
	}
	return ToDocument(&row)
}

func (gormModel[T]) delete(db *gorm.DB, conds map[string]interface{}) (int64, error) {
	query := db
	if len(conds) == 0 {
		query = query.Session(&gorm.Session{AllowGlobalUpdate: true})
	} else {
		query = query.Where(conds)
	}
	result := query.Delete(new(T))
	return result.RowsAffected, result.Error
}

func (gormModel[T]) findOrCreate(db *gorm.DB, conds map[string]interface{}, data Document) (Document, bool, error) {
	var row T
	if err := DecodeDocument(data, &row); err != nil {
		return nil, false, err
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		doc, err := ToDocument(&row)
		return doc, true, err
	}

	var existing T
	if err := db.Where(conds).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load existing document: %w", err)
	}
	doc, err := ToDocument(&existing)
	return doc, false, err
}
