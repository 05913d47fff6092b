package importer

import (
	"encoding/json"
	"errors"
	"strings"

	"catalog-service/internal/models"
)

// ProductCandidate is a typed product built from one row, not yet persisted
type ProductCandidate struct {
	Row                 int
	Name                string
	Slug                string
	Price               float64
	OriginalPrice       *float64
	Category            string
	Subcategory         string
	Brand               string
	Description         string
	ImageURL            string
	AdditionalImageURLs []string
	Rating              float64
	Reviews             int
	Weight              string
	Featured            bool
	Trending            bool
	BestSeller          bool
	LovedByExperts      bool
	OnSale              bool
	ShopByGoal          string
	SimpleFlavors       []string
	Variants            []models.ProductVariant
	NutritionInfo       map[string]interface{}
	NutritionImage      string
	Ingredients         []string
	Certifications      []string

	// Warnings are non-fatal problems found while coercing the row
	Warnings []error
}

// Normalize converts a raw row into a ProductCandidate. It returns a
// *ValidationError when name or price is missing or invalid.
func Normalize(row RawRow) (*ProductCandidate, error) {
	get := func(field string) string {
		return strings.TrimSpace(row.Values[strings.ToLower(field)])
	}

	name := get("name")
	if name == "" {
		return nil, &ValidationError{Row: row.Number, Field: "name", Message: "product name is required"}
	}

	rawPrice := get("price")
	if rawPrice == "" {
		return nil, &ValidationError{Row: row.Number, Field: "price", Message: "price is required"}
	}
	price, ok := parseFloat(rawPrice)
	if !ok {
		return nil, &ValidationError{Row: row.Number, Field: "price", Message: "price must be a valid number"}
	}
	if price <= 0 {
		return nil, &ValidationError{Row: row.Number, Field: "price", Message: "price must be greater than zero"}
	}

	c := &ProductCandidate{
		Row:                 row.Number,
		Name:                name,
		Price:               price,
		Category:            get("category"),
		Subcategory:         get("subcategory"),
		Brand:               get("brand"),
		Description:         get("description"),
		ImageURL:            get("image"),
		AdditionalImageURLs: splitList(get("images")),
		Rating:              parseFloatDefault(get("rating"), DefaultRating),
		Reviews:             parseCount(get("reviews")),
		Weight:              get("weight"),
		Featured:            parseBool(get("featured")),
		Trending:            parseBool(get("trending")),
		BestSeller:          parseBool(get("bestSeller")),
		LovedByExperts:      parseBool(get("lovedByExperts")),
		OnSale:              parseBool(get("onSale")),
		ShopByGoal:          get("shopByGoal"),
		SimpleFlavors:       splitList(get("simpleFlavors")),
		NutritionImage:      get("nutritionImage"),
		Ingredients:         splitList(get("ingredients")),
	}

	if c.Description == "" {
		c.Description = DefaultDescription
	}

	if raw := get("originalPrice"); raw != "" {
		op, ok := parseFloat(raw)
		switch {
		case !ok:
			c.warn("originalPrice", errors.New("not a number"))
		case op < price:
			c.warn("originalPrice", errors.New("lower than price, ignored"))
		default:
			c.OriginalPrice = &op
		}
	}

	c.Slug = Slugify(name)
	if s := get("slug"); s != "" {
		c.Slug = Slugify(s)
	}

	c.Variants = []models.ProductVariant{}
	if raw := get("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Variants); err != nil {
			c.Variants = []models.ProductVariant{}
			c.warn("variants", err)
		}
	}

	c.NutritionInfo = map[string]interface{}{}
	if raw := get("nutritionInfo"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.NutritionInfo); err != nil || c.NutritionInfo == nil {
			c.NutritionInfo = map[string]interface{}{}
			if err != nil {
				c.warn("nutritionInfo", err)
			}
		}
	}

	c.Certifications = []string{}
	if raw := get("certifications"); strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &c.Certifications); err != nil || c.Certifications == nil {
			c.Certifications = []string{}
			if err != nil {
				c.warn("certifications", err)
			}
		}
	} else {
		c.Certifications = splitList(raw)
	}

	return c, nil
}

func (c *ProductCandidate) warn(field string, err error) {
	c.Warnings = append(c.Warnings, &ParseError{Field: field, Err: err})
}

// Product builds the persisted product with resolved reference ids
func (c *ProductCandidate) Product(refs *References) *models.Product {
	p := &models.Product{
		Name:                c.Name,
		Slug:                c.Slug,
		Price:               c.Price,
		OriginalPrice:       c.OriginalPrice,
		Category:            c.Category,
		Subcategory:         c.Subcategory,
		Brand:               c.Brand,
		Description:         c.Description,
		ImageURL:            c.ImageURL,
		AdditionalImageURLs: c.AdditionalImageURLs,
		Rating:              c.Rating,
		Reviews:             c.Reviews,
		Weight:              c.Weight,
		Featured:            c.Featured,
		Trending:            c.Trending,
		BestSeller:          c.BestSeller,
		LovedByExperts:      c.LovedByExperts,
		OnSale:              c.OnSale,
		ShopByGoal:          c.ShopByGoal,
		SimpleFlavors:       c.SimpleFlavors,
		Variants:            c.Variants,
		NutritionInfo:       c.NutritionInfo,
		NutritionImage:      c.NutritionImage,
		Ingredients:         c.Ingredients,
		Certifications:      c.Certifications,
	}
	if refs != nil {
		p.BrandID = refs.BrandID
		p.CategoryID = refs.CategoryID
	}
	return p
}
