package importer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummary_CapsSamplesKeepsCounts(t *testing.T) {
	r := newImportResult()
	r.SuccessCount = 40
	r.RowsRead = 67
	for i := 0; i < 15; i++ {
		r.apply(Outcome{Kind: OutcomeFailed, Detail: rowMessage(i+2, errors.New("bad row"))})
	}
	for i := 0; i < 12; i++ {
		r.apply(Outcome{Kind: OutcomeDuplicate, Detail: fmt.Sprintf("Product %d", i)})
	}

	s := r.Summary(DefaultSampleLimit)
	assert.Equal(t, 40, s.SuccessCount)
	assert.Equal(t, 15, s.ErrorCount)
	assert.Equal(t, 12, s.DuplicateCount)
	assert.Equal(t, 67, s.RowsRead)
	assert.Len(t, s.Errors, 10)
	assert.Len(t, s.Duplicates, 10)
	assert.Equal(t, "Row 2: bad row", s.Errors[0])
	assert.Equal(t, "Imported 40 products (12 duplicates skipped, 15 errors)", s.Message)

	// the summary must not alias the result
	s.Errors[0] = "changed"
	assert.Equal(t, "Row 2: bad row", r.ErrorMessages[0])
}

func TestSummary_DefaultLimitAndEmptyLists(t *testing.T) {
	s := newImportResult().Summary(0)
	assert.Equal(t, []string{}, s.Errors)
	assert.Equal(t, []string{}, s.Duplicates)
	assert.Equal(t, "Imported 0 products (0 duplicates skipped, 0 errors)", s.Message)
}
