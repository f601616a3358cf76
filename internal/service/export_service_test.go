package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
	"github.com/noah-isme/family-fund-api/pkg/jobs"
	"github.com/noah-isme/family-fund-api/pkg/storage"
)

type stubExportSource struct {
	cases   []models.AssistanceCase
	members []dto.MemberSummary
	funds   []dto.FundSummary
	monthly []dto.MonthlySummary
	err     error
}

func (s *stubExportSource) Cases(context.Context) ([]models.AssistanceCase, error) {
	return s.cases, s.err
}

func (s *stubExportSource) Members(context.Context) ([]dto.MemberSummary, error) {
	return s.members, s.err
}

func (s *stubExportSource) Funds(context.Context) ([]dto.FundSummary, error) {
	return s.funds, s.err
}

func (s *stubExportSource) Monthly(context.Context, int) ([]dto.MonthlySummary, error) {
	return s.monthly, s.err
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job jobs.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, job)
	return job.ID, nil
}

func sampleExportSource() *stubExportSource {
	created := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	return &stubExportSource{
		cases: []models.AssistanceCase{{
			ID:              "case-1",
			Title:           "Hospital bill",
			CaseType:        models.CaseTypeMedical,
			Status:          models.CaseStatusPending,
			RequestedAmount: amt(1000),
			CreatedAt:       created,
		}},
		members: []dto.MemberSummary{{MemberID: "m1", FullName: "Ali", Active: true, TotalCollected: amt(100)}},
		funds:   []dto.FundSummary{{Fund: models.FundTakaful, Collected: amt(500), Available: amt(500)}},
		monthly: []dto.MonthlySummary{{Period: "2024-01", TakafulPaid: amt(50)}},
	}
}

func TestExportServiceRenderFormats(t *testing.T) {
	svc := NewExportService(sampleExportSource(), nil, nil, nil, ExportConfig{}, nil)
	ctx := context.Background()

	csvOut, err := svc.Render(ctx, ReportCases, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", csvOut.ContentType)
	assert.True(t, strings.HasSuffix(csvOut.Filename, ".csv"))
	assert.Contains(t, string(csvOut.Payload), "Hospital bill")
	assert.Contains(t, string(csvOut.Payload), "1000.00")

	pdfOut, err := svc.Render(ctx, ReportFunds, "pdf", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdfOut.Payload), "%PDF"))

	xlsxOut, err := svc.Render(ctx, ReportMonthly, "xlsx", 2024)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(xlsxOut.Payload), "PK"))

	_, err = svc.Render(ctx, ReportMembers, "docx", 0)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Render(ctx, "grades", "csv", 0)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func newAsyncExportService(t *testing.T, source exportSource, queue *recordingQueue) *ExportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("export-secret", time.Hour)
	return NewExportService(source, files, signer, queue, ExportConfig{APIPrefix: "/api/v1", MaxRetries: 1}, nil)
}

func TestExportServiceAsyncLifecycle(t *testing.T) {
	queue := &recordingQueue{}
	svc := newAsyncExportService(t, sampleExportSource(), queue)
	ctx := context.Background()

	status, err := svc.Request(ctx, dto.ExportRequest{Report: ReportCases, Format: "csv"}, "member-1")
	require.NoError(t, err)
	assert.Equal(t, ExportQueued, status.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, svc.JobType(), queue.jobs[0].Type)

	require.NoError(t, svc.HandleJob(ctx, queue.jobs[0]))

	done, err := svc.Status(ctx, status.ID, "member-1", models.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, ExportFinished, done.Status)
	require.NotNil(t, done.DownloadURL)
	assert.True(t, strings.HasPrefix(*done.DownloadURL, "/api/v1/exports/"))

	_, err = svc.Status(ctx, status.ID, "member-2", models.RoleMember)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	_, err = svc.Status(ctx, status.ID, "treasurer", models.RoleTreasurer)
	assert.NoError(t, err)

	token := strings.TrimPrefix(*done.DownloadURL, "/api/v1/exports/")
	file, err := svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Contains(t, string(file.Payload), "Hospital bill")

	_, err = svc.ResolveDownload(ctx, token+"x")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Status(ctx, "unknown", "member-1", models.RoleMember)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceFailsAfterRetries(t *testing.T) {
	queue := &recordingQueue{}
	source := sampleExportSource()
	source.err = errors.New("db down")
	svc := newAsyncExportService(t, source, queue)
	ctx := context.Background()

	status, err := svc.Request(ctx, dto.ExportRequest{Report: ReportMembers}, "admin")
	require.NoError(t, err)
	job := queue.jobs[0]

	require.Error(t, svc.HandleJob(ctx, job))
	current, err := svc.Status(ctx, status.ID, "admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, ExportQueued, current.Status)

	job.Attempt = 1
	require.Error(t, svc.HandleJob(ctx, job))
	current, err = svc.Status(ctx, status.ID, "admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, ExportFailed, current.Status)
	require.NotNil(t, current.Error)
}

func TestExportServiceRequestValidation(t *testing.T) {
	inline := NewExportService(sampleExportSource(), nil, nil, nil, ExportConfig{}, nil)
	_, err := inline.Request(context.Background(), dto.ExportRequest{Report: ReportCases}, "admin")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	queue := &recordingQueue{}
	svc := newAsyncExportService(t, sampleExportSource(), queue)
	_, err = svc.Request(context.Background(), dto.ExportRequest{Report: "grades"}, "admin")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	queue.err = errors.New("queue stopped")
	_, err = svc.Request(context.Background(), dto.ExportRequest{Report: ReportFunds}, "admin")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
