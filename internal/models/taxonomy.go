package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Brand represents a product brand, unique by exact name
type Brand struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex:idx_brands_name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// Subcategory is embedded in its parent category
type Subcategory struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Category represents a top-level category with its subcategories.
// Subcategories only ever grow; entries are matched by name.
type Category struct {
	ID            string                           `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string                           `json:"name" gorm:"not null;uniqueIndex:idx_categories_name"`
	Slug          string                           `json:"slug"`
	Subcategories datatypes.JSONSlice[Subcategory] `json:"subcategories" gorm:"type:jsonb"`
	CreatedAt     time.Time                        `json:"createdAt"`
	UpdatedAt     time.Time                        `json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// HasSubcategory reports whether a subcategory with the given name is present
func (c *Category) HasSubcategory(name string) bool {
	for _, sub := range c.Subcategories {
		if sub.Name == name {
			return true
		}
	}
	return false
}
