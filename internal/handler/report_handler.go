package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sales-report-api/internal/dto"
	"github.com/noah-isme/sales-report-api/internal/middleware"
	"github.com/noah-isme/sales-report-api/internal/models"
	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
	"github.com/noah-isme/sales-report-api/pkg/response"
)

type reportService interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, bool, error)
	Create(ctx context.Context, req dto.CreateReportRequest) (*models.Report, error)
}

// ReportHandler exposes report record endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// List godoc
// @Summary List report records
// @Tags Reports
// @Produce json
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Param startDate query string false "Range start (inclusive)"
// @Param endDate query string false "Range end (inclusive)"
// @Param category query string false "Category (exact)"
// @Param user query string false "User substring"
// @Param region query string false "Region substring"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, cacheHit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "count", len(records))
	response.JSON(c, http.StatusOK, records, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Insert a report record
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.CreateReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

func filterFromQuery(c *gin.Context) (models.ReportFilter, error) {
	filter := models.ReportFilter{
		Category: strings.TrimSpace(c.Query("category")),
		User:     strings.TrimSpace(c.Query("user")),
		Region:   strings.TrimSpace(c.Query("region")),
	}
	for _, p := range []struct {
		key  string
		dest **models.Date
	}{
		{"date", &filter.Date},
		{"startDate", &filter.StartDate},
		{"endDate", &filter.EndDate},
	} {
		raw := strings.TrimSpace(c.Query(p.key))
		if raw == "" {
			continue
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			return models.ReportFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, p.key+" must be a date formatted as 2006-01-02")
		}
		*p.dest = &d
	}
	return filter, nil
}
