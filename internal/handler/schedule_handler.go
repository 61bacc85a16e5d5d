package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sales-report-api/internal/dto"
	appErrors "github.com/noah-isme/sales-report-api/pkg/errors"
	"github.com/noah-isme/sales-report-api/pkg/response"
)

var errSchedulerDisabled = appErrors.New("SCHEDULER_DISABLED", http.StatusServiceUnavailable, "recurring scheduling is disabled")

type reportScheduler interface {
	Schedule(ctx context.Context, req dto.ScheduleReportRequest) (*dto.ScheduleResponse, error)
	List() []dto.ScheduleSummary
}

type reportSender interface {
	Send(ctx context.Context, req dto.ScheduleReportRequest) (*dto.ScheduleResponse, error)
}

// ScheduleHandler handles one-off and recurring email delivery requests.
type ScheduleHandler struct {
	scheduler reportScheduler
	sender    reportSender
}

// NewScheduleHandler constructs the handler. A nil scheduler disables
// recurring registrations.
func NewScheduleHandler(scheduler reportScheduler, sender reportSender) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler, sender: sender}
}

// Schedule godoc
// @Summary Email a report now or register a recurring delivery
// @Description Send {email, reportData} for an immediate email, or {email, frequency|cron, reportConfig} for a recurring one.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleReportRequest true "Delivery request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /schedule-report [post]
func (h *ScheduleHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var (
		resp *dto.ScheduleResponse
		err  error
	)
	switch {
	case len(req.ReportData) > 0:
		resp, err = h.sender.Send(c.Request.Context(), req)
	case req.Recurring():
		if h.scheduler == nil {
			err = errSchedulerDisabled
			break
		}
		resp, err = h.scheduler.Schedule(c.Request.Context(), req)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "reportData or frequency is required")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// List godoc
// @Summary List registered recurring deliveries
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	if h.scheduler == nil {
		response.JSON(c, http.StatusOK, []dto.ScheduleSummary{})
		return
	}
	schedules := h.scheduler.List()
	response.JSON(c, http.StatusOK, schedules, map[string]interface{}{"count": len(schedules)})
}
