package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"catalog-service/internal/importer"
	"catalog-service/internal/jobs"
	"catalog-service/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// CatalogImporter runs an import synchronously
type CatalogImporter interface {
	ImportCatalog(ctx context.Context, filePath string, opts importer.Options) (*importer.ImportResult, error)
}

// JobQueue creates and looks up asynchronous import jobs
type JobQueue interface {
	Enqueue(ctx context.Context, filePath string, format models.ImportFormat, replaceExisting bool) (*models.ImportJob, error)
	Get(ctx context.Context, id string) (*models.ImportJob, error)
}

type ImportHandler struct {
	importer    CatalogImporter
	jobs        JobQueue
	storageDir  string
	sampleLimit int
	logger      *logrus.Entry
}

// NewImportHandler creates an import handler. jobs may be nil, in which case
// async imports are rejected.
func NewImportHandler(imp CatalogImporter, jobs JobQueue, storageDir string, sampleLimit int, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		importer:    imp,
		jobs:        jobs,
		storageDir:  storageDir,
		sampleLimit: sampleLimit,
		logger:      logger.WithField("component", "import_handler"),
	}
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

// GetImportTemplate returns the import template definition or file
// @Summary Download the catalog import template
// @Tags import
// @Produce json
// @Param format query string false "json, csv or xlsx"
// @Router /catalog/import/template [get]
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.ProductImportTemplate()

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=catalog_import_template.csv")
		if err := WriteCSVTemplate(c.Writer, template); err != nil {
			h.logger.WithError(err).Error("Failed to write CSV template")
		}
	case "xlsx":
		f, err := BuildXLSXTemplate(template)
		if err != nil {
			h.logger.WithError(err).Error("Failed to build XLSX template")
			errorResponse(c, http.StatusInternalServerError, "TEMPLATE_FAILED", "Failed to build template")
			return
		}
		defer f.Close()

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=catalog_import_template.xlsx")
		if err := f.Write(c.Writer); err != nil {
			h.logger.WithError(err).Error("Failed to write XLSX template")
		}
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// WriteCSVTemplate writes the header row of the import template
func WriteCSVTemplate(w io.Writer, template models.ImportTemplate) error {
	writer := csv.NewWriter(w)
	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// BuildXLSXTemplate builds a workbook with a Products header sheet and an
// Instructions sheet describing every column
func BuildXLSXTemplate(template models.ImportTemplate) (*excelize.File, error) {
	f := excelize.NewFile()

	sheetName := "Products"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		style := headerStyle
		if col.Required {
			headerText = col.Name + " *"
			style = requiredStyle
		}
		f.SetCellValue(sheetName, cell, headerText)
		f.SetCellStyle(sheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Catalog Import Instructions")
	f.SetCellValue("Instructions", "A3", "Brands and categories are matched by exact name and created when missing.")
	f.SetCellValue("Instructions", "A4", "A subcategory is added to its category the first time it appears.")
	f.SetCellValue("Instructions", "A5", "Rows whose name already exists in the catalog are skipped as duplicates.")
	f.SetCellValue("Instructions", "A6", "JSON columns must hold valid JSON; invalid values are imported as empty.")

	f.SetCellValue("Instructions", "A8", "Column")
	f.SetCellValue("Instructions", "B8", "Description")
	f.SetCellValue("Instructions", "C8", "Required")
	f.SetCellValue("Instructions", "D8", "Type")
	f.SetCellValue("Instructions", "E8", "Example")

	for i, col := range template.Columns {
		row := i + 9
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)
	return f, nil
}

// ImportCatalog imports products from an uploaded CSV or Excel file
// @Summary Import catalog products
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Param replaceExisting formData bool false "Delete all products first"
// @Param async query bool false "Queue the import and return a job id"
// @Success 200 {object} models.ImportSummary
// @Success 202 {object} gin.H
// @Failure 400 {object} models.ErrorResponse
// @Router /catalog/import [post]
func (h *ImportHandler) ImportCatalog(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or Excel file")
		return
	}

	format, err := importer.DetectFormat(header.Filename)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_FORMAT", "Only CSV and XLSX files are supported")
		return
	}

	replaceExisting, err := parseBoolParam(c.PostForm("replaceExisting"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "replaceExisting must be true or false")
		return
	}
	async, err := parseBoolParam(c.Query("async"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "async must be true or false")
		return
	}
	if async && h.jobs == nil {
		errorResponse(c, http.StatusServiceUnavailable, "ASYNC_UNAVAILABLE", "Asynchronous imports are not configured")
		return
	}

	if err := os.MkdirAll(h.storageDir, 0o755); err != nil {
		h.logger.WithError(err).Error("Failed to create upload directory")
		errorResponse(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to store uploaded file")
		return
	}
	path := filepath.Join(h.storageDir, uuid.New().String()+strings.ToLower(filepath.Ext(header.Filename)))
	if err := c.SaveUploadedFile(header, path); err != nil {
		h.logger.WithError(err).Error("Failed to save uploaded file")
		errorResponse(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to store uploaded file")
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"upload":           header.Filename,
		"replace_existing": replaceExisting,
	})

	if async {
		job, err := h.jobs.Enqueue(c.Request.Context(), path, format, replaceExisting)
		if err != nil {
			os.Remove(path)
			log.WithError(err).Error("Failed to queue import job")
			errorResponse(c, http.StatusInternalServerError, "QUEUE_FAILED", "Failed to queue import job")
			return
		}
		log.WithField("job_id", job.ID).Info("Import job queued")
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"jobId":   job.ID,
			"message": "Import queued for processing",
		})
		return
	}

	defer os.Remove(path)

	result, err := h.importer.ImportCatalog(c.Request.Context(), path, importer.Options{
		ReplaceExisting: replaceExisting,
		Format:          format,
	})
	if err != nil {
		var accessErr *importer.FileAccessError
		if errors.As(err, &accessErr) {
			errorResponse(c, http.StatusBadRequest, "FILE_UNREADABLE", accessErr.Err.Error())
			return
		}
		log.WithError(err).Error("Catalog import failed")
		errorResponse(c, http.StatusInternalServerError, "IMPORT_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, result.Summary(h.sampleLimit))
}

// parseBoolParam accepts the strconv.ParseBool forms. An absent value is false.
func parseBoolParam(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

// GetImportJob returns the status and summary of an asynchronous import
// @Summary Get an import job
// @Tags import
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.ImportJob
// @Failure 404 {object} models.ErrorResponse
// @Router /catalog/import/jobs/{id} [get]
func (h *ImportHandler) GetImportJob(c *gin.Context) {
	if h.jobs == nil {
		errorResponse(c, http.StatusServiceUnavailable, "ASYNC_UNAVAILABLE", "Asynchronous imports are not configured")
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		errorResponse(c, http.StatusNotFound, "JOB_NOT_FOUND", "Import job not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load import job")
		errorResponse(c, http.StatusInternalServerError, "JOB_LOOKUP_FAILED", "Failed to retrieve import job")
		return
	}

	c.JSON(http.StatusOK, job)
}
