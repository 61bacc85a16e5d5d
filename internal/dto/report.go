package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sales-report-api/internal/models"
)

// CreateReportRequest captures POST /reports payload.
type CreateReportRequest struct {
	Date     string           `json:"date" validate:"required,datetime=2006-01-02"`
	Category string           `json:"category" validate:"required,oneof=Sales HR Finance"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	User     string           `json:"user" validate:"required"`
	Region   string           `json:"region" validate:"required"`
}

// ExportRequest captures POST /export/{format}. Data wins over Filters when both are sent.
type ExportRequest struct {
	Data    []models.Report      `json:"data"`
	Filters *models.ReportFilter `json:"filters,omitempty"`
}
