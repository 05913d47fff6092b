package models

import "time"

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportStatus represents the status of an import job
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "PENDING"
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusCompleted  ImportStatus = "COMPLETED"
	ImportStatusFailed     ImportStatus = "FAILED"
)

// ImportSummary is the bounded report handed back to callers.
// Counts are exact; Duplicates and Errors hold at most the configured sample size.
type ImportSummary struct {
	SuccessCount   int      `json:"successCount"`
	ErrorCount     int      `json:"errorCount"`
	DuplicateCount int      `json:"duplicateCount"`
	WarningCount   int      `json:"warningCount"`
	RowsRead       int      `json:"rowsRead"`
	ResumedRows    int      `json:"resumedRows,omitempty"`
	Duplicates     []string `json:"duplicates"`
	Errors         []string `json:"errors"`
	Message        string   `json:"message"`
}

// ImportJob tracks an asynchronous import and its final summary
type ImportJob struct {
	ID              string         `json:"id"`
	Status          ImportStatus   `json:"status"`
	FilePath        string         `json:"filePath"`
	Format          ImportFormat   `json:"format,omitempty"`
	ReplaceExisting bool           `json:"replaceExisting"`
	Summary         *ImportSummary `json:"summary,omitempty"`
	Error           string         `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, boolean, list, json
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for product import, in file order
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Whey Protein Isolate"},
		{Name: "price", Description: "Selling price, greater than zero", Required: true, Type: "number", Example: "49.99"},
		{Name: "originalPrice", Description: "Price before discount, ignored when lower than price", Type: "number", Example: "59.99"},
		{Name: "category", Description: "Category name - auto-created if missing", Type: "string", Example: "Protein"},
		{Name: "subcategory", Description: "Subcategory name - appended to the category if missing", Type: "string", Example: "Whey"},
		{Name: "brand", Description: "Brand name - auto-created if missing", Type: "string", Example: "Acme Nutrition"},
		{Name: "description", Description: "Product description", Type: "string", Example: ""},
		{Name: "image", Description: "Primary image URL", Type: "string", Example: "https://cdn.example.com/whey.jpg"},
		{Name: "images", Description: "Comma-separated additional image URLs", Type: "list", Example: ""},
		{Name: "rating", Description: "Rating, defaults to 4.0", Type: "number", Example: "4.5"},
		{Name: "reviews", Description: "Review count, defaults to 0", Type: "number", Example: "120"},
		{Name: "weight", Description: "Display weight", Type: "string", Example: "2kg"},
		{Name: "simpleFlavors", Description: "Comma-separated flavors", Type: "list", Example: "Chocolate, Vanilla"},
		{Name: "variants", Description: "JSON array of {flavor, weight, price}", Type: "json", Example: `[{"flavor":"Chocolate","weight":"1kg","price":29.99}]`},
		{Name: "featured", Description: "true/1/yes, anything else is false", Type: "boolean", Example: "yes"},
		{Name: "trending", Description: "true/1/yes, anything else is false", Type: "boolean", Example: "no"},
		{Name: "bestSeller", Description: "true/1/yes, anything else is false", Type: "boolean", Example: "1"},
		{Name: "lovedByExperts", Description: "true/1/yes, anything else is false", Type: "boolean", Example: "0"},
		{Name: "onSale", Description: "true/1/yes, anything else is false", Type: "boolean", Example: "true"},
		{Name: "shopByGoal", Description: "Goal the product is listed under", Type: "string", Example: "muscle-gain"},
		{Name: "nutritionInfo", Description: "JSON object of nutrition facts", Type: "json", Example: `{"protein":"25g"}`},
		{Name: "ingredients", Description: "Comma-separated ingredients", Type: "list", Example: "Whey isolate, Cocoa"},
		{Name: "certifications", Description: "Comma-separated list or JSON array of strings", Type: "list", Example: "GMP, Halal"},
		{Name: "nutritionImage", Description: "Nutrition label image URL", Type: "string", Example: ""},
		{Name: "slug", Description: "URL slug, derived from name when empty", Type: "string", Example: ""},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "2.0",
		Columns: ProductImportColumns(),
	}
}
