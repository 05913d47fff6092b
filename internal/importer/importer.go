// Package importer turns a tabular product file into catalog records.
//
// Rows are read, normalized, resolved against the brand and category
// taxonomy, checked for duplicates and written one at a time. A failure on one
// row is recorded in the ImportResult and never stops the run; only a file
// that cannot be opened, a failed replace, or a cancelled context ends it early.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"catalog-service/internal/models"
	"catalog-service/internal/store"
	"github.com/sirupsen/logrus"
)

// Options control a single import run
type Options struct {
	// ReplaceExisting deletes every stored product before the first row is written
	ReplaceExisting bool
	// Format overrides detection from the file extension
	Format models.ImportFormat
	// JobID enables checkpoints when the importer has a Checkpointer
	JobID string
	// SkipDuplicateCheck creates rows even when a product with the same name exists
	SkipDuplicateCheck bool
}

// Importer drives the row pipeline against a catalog store
type Importer struct {
	store       store.CatalogStore
	source      Source
	resolver    *Resolver
	duplicates  *DuplicateDetector
	checkpoints Checkpointer
	logger      *logrus.Entry
}

// Option configures an Importer
type Option func(*Importer)

// WithSource sets where files are opened from. Defaults to the local filesystem.
func WithSource(src Source) Option {
	return func(im *Importer) { im.source = src }
}

func WithCheckpointer(c Checkpointer) Option {
	return func(im *Importer) { im.checkpoints = c }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(im *Importer) { im.logger = logrus.NewEntry(logger) }
}

func New(s store.CatalogStore, opts ...Option) *Importer {
	im := &Importer{
		store:  s,
		source: LocalSource{},
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(im)
	}
	im.logger = im.logger.WithField("component", "catalog_importer")
	im.resolver = NewResolver(s, im.logger)
	im.duplicates = NewDuplicateDetector(s)
	return im
}

// ImportCatalog imports every row of filePath in order.
//
// A *FileAccessError is returned when the file cannot be opened, before any
// product is deleted or written. When ctx is cancelled the rows processed so
// far are kept and returned together with ctx.Err().
func (im *Importer) ImportCatalog(ctx context.Context, filePath string, opts Options) (*ImportResult, error) {
	log := im.logger.WithField("file", filePath)
	if opts.JobID != "" {
		log = log.WithField("job_id", opts.JobID)
	}

	reader, err := OpenReader(ctx, im.source, filePath, opts.Format)
	if err != nil {
		log.WithError(err).Error("Failed to open import file")
		return nil, err
	}
	defer reader.Close()

	done := im.loadCheckpoints(ctx, opts.JobID, log)

	if opts.ReplaceExisting {
		if len(done) > 0 {
			log.Info("Resuming job, existing products are kept")
		} else {
			deleted, err := im.store.Delete(ctx, store.CollectionProducts, store.Filter{})
			if err != nil {
				log.WithError(err).Error("Failed to delete existing products")
				return nil, &PersistenceError{Op: "delete", Collection: string(store.CollectionProducts), Err: err}
			}
			log.WithField("deleted", deleted).Warn("Deleted all existing products before import")
		}
	}

	result := newImportResult()
	for {
		if err := ctx.Err(); err != nil {
			log.WithField("rows_read", result.RowsRead).Warn("Import cancelled")
			return result, err
		}

		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var malformed *MalformedRowError
			if !errors.As(err, &malformed) {
				log.WithError(err).Error("Failed to read import file")
				return result, fmt.Errorf("failed to read import file: %w", err)
			}
			result.RowsRead++
			im.finish(ctx, opts.JobID, result, malformed.Row, Outcome{Kind: OutcomeFailed, Detail: rowMessage(malformed.Row, err)}, log)
			continue
		}

		result.RowsRead++
		if outcome, ok := done[row.Number]; ok {
			result.ResumedRows++
			result.apply(outcome)
			continue
		}

		outcome := im.processRow(ctx, row, opts, log)
		if outcome.Kind == OutcomeFailed && ctx.Err() != nil {
			log.WithField("rows_read", result.RowsRead).Warn("Import cancelled")
			return result, ctx.Err()
		}
		im.finish(ctx, opts.JobID, result, row.Number, outcome, log)
	}

	log.WithFields(logrus.Fields{
		"rows_read":  result.RowsRead,
		"created":    result.SuccessCount,
		"duplicates": len(result.Duplicates),
		"errors":     len(result.ErrorMessages),
		"warnings":   len(result.Warnings),
		"resumed":    result.ResumedRows,
	}).Info("Catalog import finished")

	return result, nil
}

// processRow carries the row's warnings in the returned Outcome so a resumed
// job reports them without reprocessing the row.
func (im *Importer) processRow(ctx context.Context, row RawRow, opts Options, log *logrus.Entry) Outcome {
	var warnings []string
	fail := func(err error) Outcome {
		log.WithField("row", row.Number).WithError(err).Warn("Row rejected")
		return Outcome{Kind: OutcomeFailed, Detail: rowMessage(row.Number, err), Warnings: warnings}
	}

	candidate, err := Normalize(row)
	if err != nil {
		return fail(err)
	}
	for _, w := range candidate.Warnings {
		log.WithField("row", row.Number).WithError(w).Warn("Field ignored")
		warnings = append(warnings, rowMessage(row.Number, w))
	}

	refs, err := im.resolver.Resolve(ctx, candidate.Brand, candidate.Category, candidate.Subcategory)
	if err != nil {
		return fail(err)
	}

	if !opts.SkipDuplicateCheck {
		dup, err := im.duplicates.IsDuplicate(ctx, candidate.Name)
		if err != nil {
			return fail(err)
		}
		if dup {
			log.WithFields(logrus.Fields{"row": row.Number, "name": candidate.Name}).Debug("Duplicate product skipped")
			return Outcome{Kind: OutcomeDuplicate, Detail: candidate.Name, Warnings: warnings}
		}
	}

	doc, err := store.ToDocument(candidate.Product(refs))
	if err != nil {
		return fail(err)
	}
	delete(doc, "id")
	delete(doc, "createdAt")
	delete(doc, "updatedAt")

	if _, err := im.store.Create(ctx, store.CollectionProducts, doc); err != nil {
		return fail(&PersistenceError{Op: "create", Collection: string(store.CollectionProducts), Err: err})
	}
	return Outcome{Kind: OutcomeCreated, Warnings: warnings}
}

func (im *Importer) finish(ctx context.Context, jobID string, result *ImportResult, row int, outcome Outcome, log *logrus.Entry) {
	result.apply(outcome)
	if jobID == "" || im.checkpoints == nil {
		return
	}
	if err := im.checkpoints.Mark(ctx, jobID, row, outcome); err != nil {
		log.WithField("row", row).WithError(err).Warn("Failed to save checkpoint")
	}
}

func (im *Importer) loadCheckpoints(ctx context.Context, jobID string, log *logrus.Entry) map[int]Outcome {
	if jobID == "" || im.checkpoints == nil {
		return nil
	}
	done, err := im.checkpoints.Load(ctx, jobID)
	if err != nil {
		log.WithError(err).Warn("Failed to load checkpoints, starting from the first row")
		return nil
	}
	if len(done) > 0 {
		log.WithField("completed_rows", len(done)).Info("Resuming import from checkpoints")
	}
	return done
}
