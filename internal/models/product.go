package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductVariant represents a flavor/weight/price combination of a product
type ProductVariant struct {
	Flavor string  `json:"flavor"`
	Weight string  `json:"weight"`
	Price  float64 `json:"price"`
}

// Product represents a catalog product document
type Product struct {
	ID                  string                              `json:"id" gorm:"type:uuid;primaryKey"`
	Name                string                              `json:"name" gorm:"not null;index:idx_products_name"`
	Slug                string                              `json:"slug" gorm:"index:idx_products_slug"`
	Price               float64                             `json:"price" gorm:"not null"`
	OriginalPrice       *float64                            `json:"originalPrice,omitempty"`
	Category            string                              `json:"category,omitempty" gorm:"index"`
	CategoryID          string                              `json:"categoryId,omitempty" gorm:"index"`
	Subcategory         string                              `json:"subcategory,omitempty"`
	Brand               string                              `json:"brand,omitempty" gorm:"index"`
	BrandID             string                              `json:"brandId,omitempty" gorm:"index"`
	Description         string                              `json:"description"`
	ImageURL            string                              `json:"imageUrl,omitempty" gorm:"column:image_url"`
	AdditionalImageURLs datatypes.JSONSlice[string]         `json:"additionalImageUrls" gorm:"column:additional_image_urls;type:jsonb"`
	Rating              float64                             `json:"rating"`
	Reviews             int                                 `json:"reviews" gorm:"default:0"`
	Weight              string                              `json:"weight,omitempty"`
	Featured            bool                                `json:"featured"`
	Trending            bool                                `json:"trending"`
	BestSeller          bool                                `json:"bestSeller"`
	LovedByExperts      bool                                `json:"lovedByExperts"`
	OnSale              bool                                `json:"onSale"`
	ShopByGoal          string                              `json:"shopByGoal,omitempty"`
	SimpleFlavors       datatypes.JSONSlice[string]         `json:"simpleFlavors" gorm:"type:jsonb"`
	Variants            datatypes.JSONSlice[ProductVariant] `json:"variants" gorm:"type:jsonb"`
	NutritionInfo       datatypes.JSONMap                   `json:"nutritionInfo" gorm:"type:jsonb"`
	NutritionImage      string                              `json:"nutritionImage,omitempty"`
	Ingredients         datatypes.JSONSlice[string]         `json:"ingredients" gorm:"type:jsonb"`
	Certifications      datatypes.JSONSlice[string]         `json:"certifications" gorm:"type:jsonb"`
	CreatedAt           time.Time                           `json:"createdAt"`
	UpdatedAt           time.Time                           `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// ErrorResponse is the error envelope returned by every HTTP endpoint
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
