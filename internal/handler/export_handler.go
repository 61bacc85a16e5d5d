package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sales-report-api/internal/dto"
	"github.com/noah-isme/sales-report-api/internal/models"
	"github.com/noah-isme/sales-report-api/internal/service"
	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
	"github.com/noah-isme/sales-report-api/pkg/response"
)

type exportService interface {
	Render(ctx context.Context, format models.ReportFormat, records []models.Report) (*service.Artifact, error)
	ResolveDownload(token string) (*service.Artifact, error)
}

type reportFetcher interface {
	Fetch(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

// ExportHandler serves report downloads.
type ExportHandler struct {
	exports exportService
	reports reportFetcher
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportService, reports reportFetcher) *ExportHandler {
	return &ExportHandler{exports: exports, reports: reports}
}

// Export godoc
// @Summary Render records as a downloadable file
// @Tags Export
// @Accept json
// @Produce application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,text/csv
// @Param format path string true "excel, pdf or csv"
// @Param payload body dto.ExportRequest true "Records or filters"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /export/{format} [post]
func (h *ExportHandler) Export(c *gin.Context) {
	format, err := service.ParseReportFormat(c.Param("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	records := req.Data
	if len(records) == 0 && req.Filters != nil && h.reports != nil {
		records, err = h.reports.Fetch(c.Request.Context(), *req.Filters)
		if err != nil {
			response.Error(c, err)
			return
		}
	}
	if len(records) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrNothingToExport, "data is required and must not be empty"))
		return
	}

	artifact, err := h.exports.Render(c.Request.Context(), format, records)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, artifact.Filename, artifact.ContentType, artifact.Data)
}

// Download godoc
// @Summary Download an archived report by signed token
// @Tags Export
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	artifact, err := h.exports.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, artifact.Filename, artifact.ContentType, artifact.Data)
}
