package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/service"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

type fakeReportSrv struct {
	dashboardHit bool
	lastYear     int
}

func (f *fakeReportSrv) Dashboard(context.Context) (*dto.DashboardResponse, bool, error) {
	return &dto.DashboardResponse{Members: 4}, f.dashboardHit, nil
}

func (f *fakeReportSrv) CaseSummary(context.Context) (dto.CaseSummary, []dto.CaseTypeSummary, error) {
	return dto.CaseSummary{TotalCases: 2}, nil, nil
}

func (f *fakeReportSrv) Reconciliation(context.Context) (*dto.ReconciliationReport, error) {
	return nil, appErrors.Internal(context.DeadlineExceeded, "failed to load report data")
}

func (f *fakeReportSrv) Funds(context.Context) ([]dto.FundSummary, error) {
	return []dto.FundSummary{}, nil
}

func (f *fakeReportSrv) Members(context.Context) ([]dto.MemberSummary, error) {
	return []dto.MemberSummary{}, nil
}

func (f *fakeReportSrv) Monthly(_ context.Context, year int) ([]dto.MonthlySummary, error) {
	f.lastYear = year
	return []dto.MonthlySummary{}, nil
}

type fakeRenderer struct {
	report string
	format string
}

func (f *fakeRenderer) Render(_ context.Context, report, format string, _ int) (*service.RenderedExport, error) {
	f.report, f.format = report, format
	return &service.RenderedExport{Filename: "cases.pdf", ContentType: "application/pdf", Payload: []byte("%PDF-1.3")}, nil
}

func reportContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, rec
}

func TestReportHandlerDashboardCacheMeta(t *testing.T) {
	handler := NewReportHandler(&fakeReportSrv{dashboardHit: true}, nil)
	c, rec := reportContext("/reports/dashboard")

	handler.Dashboard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(4), envelope.Data["members"])
}

func TestReportHandlerMonthlyYear(t *testing.T) {
	srv := &fakeReportSrv{}
	handler := NewReportHandler(srv, nil)

	c, rec := reportContext("/reports/monthly?year=2023")
	handler.Monthly(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2023, srv.lastYear)

	c, rec = reportContext("/reports/monthly?year=last")
	handler.Monthly(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerInternalErrorHidesCause(t *testing.T) {
	handler := NewReportHandler(&fakeReportSrv{}, nil)
	c, rec := reportContext("/reports/reconciliation")

	handler.Reconciliation(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deadline")
}

func TestReportHandlerExportStreamsFile(t *testing.T) {
	renderer := &fakeRenderer{}
	handler := NewReportHandler(&fakeReportSrv{}, renderer)
	c, rec := reportContext("/reports/cases/export?format=pdf")

	handler.Export(service.ReportCases)(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cases.pdf")
	assert.Equal(t, service.ReportCases, renderer.report)
	assert.Equal(t, "pdf", renderer.format)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
