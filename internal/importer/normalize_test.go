package importer

import (
	"testing"

	"catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRow(values map[string]string) RawRow {
	lowered := make(map[string]string, len(values))
	for k, v := range values {
		lowered[normalizeHeaders([]string{k})[0]] = v
	}
	return RawRow{Number: 2, Values: lowered}
}

func TestNormalize_Defaults(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{"name": "  Whey Protein  ", "price": "49.99"}))
	require.NoError(t, err)

	assert.Equal(t, "Whey Protein", c.Name)
	assert.Equal(t, 49.99, c.Price)
	assert.Equal(t, "whey-protein", c.Slug)
	assert.Equal(t, DefaultDescription, c.Description)
	assert.Equal(t, DefaultRating, c.Rating)
	assert.Equal(t, 0, c.Reviews)
	assert.Nil(t, c.OriginalPrice)
	assert.Equal(t, []models.ProductVariant{}, c.Variants)
	assert.Equal(t, map[string]interface{}{}, c.NutritionInfo)
	assert.Equal(t, []string{}, c.Certifications)
	assert.Equal(t, []string{}, c.SimpleFlavors)
	assert.Empty(t, c.Warnings)
}

func TestNormalize_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		field  string
	}{
		{"missing name", map[string]string{"price": "10"}, "name"},
		{"blank name", map[string]string{"name": "   ", "price": "10"}, "name"},
		{"missing price", map[string]string{"name": "Whey"}, "price"},
		{"non numeric price", map[string]string{"name": "Whey", "price": "ten"}, "price"},
		{"zero price", map[string]string{"name": "Whey", "price": "0"}, "price"},
		{"negative price", map[string]string{"name": "Whey", "price": "-5"}, "price"},
		{"infinite price", map[string]string{"name": "Whey", "price": "Inf"}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Normalize(rawRow(tt.values))
			assert.Nil(t, c)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, 2, vErr.Row)
		})
	}
}

func TestNormalize_Booleans(t *testing.T) {
	for _, v := range []string{"TRUE", "true", "1", "yes", " Yes "} {
		c, err := Normalize(rawRow(map[string]string{"name": "Whey", "price": "1", "featured": v, "onSale": v}))
		require.NoError(t, err)
		assert.True(t, c.Featured, v)
		assert.True(t, c.OnSale, v)
	}
	for _, v := range []string{"", "FALSE", "no", "0", "maybe"} {
		c, err := Normalize(rawRow(map[string]string{"name": "Whey", "price": "1", "trending": v, "lovedByExperts": v}))
		require.NoError(t, err)
		assert.False(t, c.Trending, v)
		assert.False(t, c.LovedByExperts, v)
	}
}

func TestNormalize_Numbers(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{
		"name": "Whey", "price": "10", "rating": "great", "reviews": "-3",
	}))
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, c.Rating)
	assert.Equal(t, 0, c.Reviews)

	c, err = Normalize(rawRow(map[string]string{
		"name": "Whey", "price": "10", "rating": "4.7", "reviews": "120",
	}))
	require.NoError(t, err)
	assert.Equal(t, 4.7, c.Rating)
	assert.Equal(t, 120, c.Reviews)
}

func TestNormalize_OriginalPrice(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{"name": "Whey", "price": "40", "originalPrice": "50"}))
	require.NoError(t, err)
	require.NotNil(t, c.OriginalPrice)
	assert.Equal(t, 50.0, *c.OriginalPrice)

	c, err = Normalize(rawRow(map[string]string{"name": "Whey", "price": "40", "originalPrice": "30"}))
	require.NoError(t, err)
	assert.Nil(t, c.OriginalPrice)
	require.Len(t, c.Warnings, 1)

	var pErr *ParseError
	require.ErrorAs(t, c.Warnings[0], &pErr)
	assert.Equal(t, "originalPrice", pErr.Field)
}

func TestNormalize_Lists(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{
		"name":          "Whey",
		"price":         "10",
		"images":        "a.jpg, ,b.jpg,a.jpg",
		"simpleFlavors": "Chocolate , Vanilla",
		"ingredients":   ",Whey isolate,,",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "a.jpg"}, c.AdditionalImageURLs)
	assert.Equal(t, []string{"Chocolate", "Vanilla"}, c.SimpleFlavors)
	assert.Equal(t, []string{"Whey isolate"}, c.Ingredients)
}

func TestNormalize_EmbeddedJSON(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{
		"name":           "Whey",
		"price":          "10",
		"variants":       `[{"flavor":"Chocolate","weight":"1kg","price":29.99}]`,
		"nutritionInfo":  `{"protein":"25g","servings":30}`,
		"certifications": `["GMP","Halal"]`,
	}))
	require.NoError(t, err)
	assert.Equal(t, []models.ProductVariant{{Flavor: "Chocolate", Weight: "1kg", Price: 29.99}}, c.Variants)
	assert.Equal(t, "25g", c.NutritionInfo["protein"])
	assert.Equal(t, []string{"GMP", "Halal"}, c.Certifications)
	assert.Empty(t, c.Warnings)
}

func TestNormalize_MalformedJSONIsAWarning(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{
		"name":           "Whey",
		"price":          "10",
		"variants":       `{not valid json`,
		"nutritionInfo":  `[1,2]`,
		"certifications": `["GMP",`,
	}))
	require.NoError(t, err)
	assert.Equal(t, []models.ProductVariant{}, c.Variants)
	assert.Equal(t, map[string]interface{}{}, c.NutritionInfo)
	assert.Equal(t, []string{}, c.Certifications)

	var fields []string
	for _, w := range c.Warnings {
		var pErr *ParseError
		require.ErrorAs(t, w, &pErr)
		fields = append(fields, pErr.Field)
	}
	assert.Equal(t, []string{"variants", "nutritionInfo", "certifications"}, fields)
}

func TestNormalize_CommaCertifications(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{"name": "Whey", "price": "10", "certifications": "GMP, Halal"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"GMP", "Halal"}, c.Certifications)
}

func TestNormalize_SlugCell(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{"name": "Whey", "price": "10", "slug": "Custom Slug!"}))
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", c.Slug)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Whey Protein Isolate":    "whey-protein-isolate",
		"  Leading and trailing ": "leading-and-trailing",
		"Multi   Space--Dash":     "multi-space-dash",
		"Rock&Roll 100%":          "rockroll-100",
		"---":                     "",
		"Crème Brûlée":            "crme-brle",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestProductFromCandidate(t *testing.T) {
	c, err := Normalize(rawRow(map[string]string{"name": "Whey", "price": "10", "brand": "Acme", "category": "Protein"}))
	require.NoError(t, err)

	p := c.Product(&References{BrandID: "b-1", CategoryID: "c-1"})
	assert.Equal(t, "Whey", p.Name)
	assert.Equal(t, "Acme", p.Brand)
	assert.Equal(t, "b-1", p.BrandID)
	assert.Equal(t, "c-1", p.CategoryID)
	assert.Empty(t, p.ID)
}
