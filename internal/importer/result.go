package importer

import (
	"fmt"

	"catalog-service/internal/models"
)

// DefaultSampleLimit caps the duplicate and error samples in a summary
const DefaultSampleLimit = 10

// ImportResult accumulates the outcome of one import run
type ImportResult struct {
	SuccessCount  int      `json:"successCount"`
	ErrorMessages []string `json:"errorMessages"`
	Duplicates    []string `json:"duplicates"`
	Warnings      []string `json:"warnings"`
	RowsRead      int      `json:"rowsRead"`
	ResumedRows   int      `json:"resumedRows"`
}

func newImportResult() *ImportResult {
	return &ImportResult{
		ErrorMessages: []string{},
		Duplicates:    []string{},
		Warnings:      []string{},
	}
}

func rowMessage(row int, err error) string {
	return fmt.Sprintf("Row %d: %v", row, err)
}

func (r *ImportResult) apply(o Outcome) {
	switch o.Kind {
	case OutcomeCreated:
		r.SuccessCount++
	case OutcomeDuplicate:
		r.Duplicates = append(r.Duplicates, o.Detail)
	case OutcomeFailed:
		r.ErrorMessages = append(r.ErrorMessages, o.Detail)
	}
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// Summary returns exact counts and at most limit duplicates and errors.
// A non-positive limit uses DefaultSampleLimit.
func (r *ImportResult) Summary(limit int) models.ImportSummary {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	return models.ImportSummary{
		SuccessCount:   r.SuccessCount,
		ErrorCount:     len(r.ErrorMessages),
		DuplicateCount: len(r.Duplicates),
		WarningCount:   len(r.Warnings),
		RowsRead:       r.RowsRead,
		ResumedRows:    r.ResumedRows,
		Duplicates:     sample(r.Duplicates, limit),
		Errors:         sample(r.ErrorMessages, limit),
		Message: fmt.Sprintf("Imported %d products (%d duplicates skipped, %d errors)",
			r.SuccessCount, len(r.Duplicates), len(r.ErrorMessages)),
	}
}

func sample(items []string, limit int) []string {
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
