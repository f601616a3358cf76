package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/middleware"
	"github.com/noah-isme/family-fund-api/internal/service"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
	"github.com/noah-isme/family-fund-api/pkg/response"
)

type reportService interface {
	Dashboard(ctx context.Context) (*dto.DashboardResponse, bool, error)
	CaseSummary(ctx context.Context) (dto.CaseSummary, []dto.CaseTypeSummary, error)
	Reconciliation(ctx context.Context) (*dto.ReconciliationReport, error)
	Funds(ctx context.Context) ([]dto.FundSummary, error)
	Members(ctx context.Context) ([]dto.MemberSummary, error)
	Monthly(ctx context.Context, year int) ([]dto.MonthlySummary, error)
}

type reportRenderer interface {
	Render(ctx context.Context, report, format string, year int) (*service.RenderedExport, error)
}

// ReportHandler exposes ledger aggregates and their file exports.
type ReportHandler struct {
	reports  reportService
	exporter reportRenderer
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, exporter reportRenderer) *ReportHandler {
	return &ReportHandler{reports: reports, exporter: exporter}
}

// Dashboard godoc
// @Summary Ledger and fund overview
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	summary, cacheHit, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}

// CaseSummary godoc
// @Summary Case totals by status and type
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/cases [get]
func (h *ReportHandler) CaseSummary(c *gin.Context) {
	summary, byType, err := h.reports.CaseSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"summary": summary, "by_type": byType}, nil)
}

// Reconciliation godoc
// @Summary Compare stored case totals with disbursement rows
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/reconciliation [get]
func (h *ReportHandler) Reconciliation(c *gin.Context) {
	report, err := h.reports.Reconciliation(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Funds godoc
// @Summary Collections per fund and the takaful balance
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/funds [get]
func (h *ReportHandler) Funds(c *gin.Context) {
	funds, err := h.reports.Funds(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, funds, nil)
}

// Members godoc
// @Summary Per-member fund balances
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/members [get]
func (h *ReportHandler) Members(c *gin.Context) {
	members, err := h.reports.Members(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// Monthly godoc
// @Summary Paid and pending dues per month
// @Tags Reports
// @Produce json
// @Param year query int false "Calendar year, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /reports/monthly [get]
func (h *ReportHandler) Monthly(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	months, err := h.reports.Monthly(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, months, nil)
}

// Export godoc
// @Summary Download a report file
// @Tags Reports
// @Produce octet-stream
// @Param report path string true "cases|members|funds|monthly"
// @Param format query string false "csv|pdf|xlsx"
// @Param year query int false "Year for the monthly report"
// @Success 200 {file} binary
// @Router /reports/{report}/export [get]
func (h *ReportHandler) Export(report string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.exporter == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInternal, "exports not configured"))
			return
		}
		year, ok := yearParam(c)
		if !ok {
			return
		}
		file, err := h.exporter.Render(c.Request.Context(), report, c.Query("format"), year)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.File(c, file.Filename, file.ContentType, file.Payload)
	}
}

func yearParam(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return 0, false
	}
	return year, true
}
