package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/pkg/export"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
	"github.com/noah-isme/family-fund-api/pkg/jobs"
	"github.com/noah-isme/family-fund-api/pkg/storage"
)

// Report names accepted by exports.
const (
	ReportCases   = "cases"
	ReportMembers = "members"
	ReportFunds   = "funds"
	ReportMonthly = "monthly"
)

// Export lifecycle states.
const (
	ExportQueued     = "queued"
	ExportProcessing = "processing"
	ExportFinished   = "finished"
	ExportFailed     = "failed"

	jobTypeRenderExport = "render_export"
)

type exportSource interface {
	Cases(ctx context.Context) ([]models.AssistanceCase, error)
	Members(ctx context.Context) ([]dto.MemberSummary, error)
	Funds(ctx context.Context) ([]dto.FundSummary, error)
	Monthly(ctx context.Context, year int) ([]dto.MonthlySummary, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type exportQueue interface {
	Enqueue(ctx context.Context, job jobs.Job) (string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix  string
	ResultTTL  time.Duration
	MaxRetries int
}

// RenderedExport is a finished file ready to stream.
type RenderedExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type exportRecord struct {
	status    dto.ExportStatus
	req       dto.ExportRequest
	format    export.Format
	ownerID   string
	path      string
	token     string
	expiresAt time.Time
}

// ExportService renders report datasets to CSV, PDF or XLSX, either inline or as a queued
// job whose result is stored on disk behind a signed download link.
type ExportService struct {
	source    exportSource
	storage   fileStorage
	signer    *storage.DownloadSigner
	queue     exportQueue
	renderers map[export.Format]renderer
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time

	mu      sync.RWMutex
	records map[string]*exportRecord
}

// NewExportService constructs an ExportService. storage, signer and queue may be nil when only
// inline rendering is needed.
func NewExportService(source exportSource, files fileStorage, signer *storage.DownloadSigner, queue exportQueue, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		source:  source,
		storage: files,
		signer:  signer,
		queue:   queue,
		renderers: map[export.Format]renderer{
			export.FormatCSV:  export.NewCSVExporter(),
			export.FormatPDF:  export.NewPDFExporter(),
			export.FormatXLSX: export.NewXLSXExporter(),
		},
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		records: make(map[string]*exportRecord),
	}
}

// Render builds report in the requested format synchronously.
func (s *ExportService) Render(ctx context.Context, report, rawFormat string, year int) (*RenderedExport, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return s.render(ctx, report, format, year)
}

func (s *ExportService) render(ctx context.Context, report string, format export.Format, year int) (*RenderedExport, error) {
	dataset, err := s.buildDataset(ctx, report, year)
	if err != nil {
		return nil, err
	}
	payload, err := s.renderers[format].Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &RenderedExport{
		Filename:    fmt.Sprintf("%s-%s.%s", report, s.now().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

// Request queues an export and returns its initial status.
func (s *ExportService) Request(ctx context.Context, req dto.ExportRequest, ownerID string) (*dto.ExportStatus, error) {
	if s.queue == nil || s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "asynchronous exports are not configured")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	switch req.Report {
	case ReportCases, ReportMembers, ReportFunds, ReportMonthly:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report")
	}

	record := &exportRecord{
		status: dto.ExportStatus{
			ID:        uuid.NewString(),
			Report:    req.Report,
			Format:    string(format),
			Status:    ExportQueued,
			CreatedAt: s.now(),
		},
		req:     req,
		format:  format,
		ownerID: ownerID,
	}
	s.mu.Lock()
	s.records[record.status.ID] = record
	s.mu.Unlock()

	if _, err := s.queue.Enqueue(ctx, jobs.Job{ID: record.status.ID, Type: jobTypeRenderExport}); err != nil {
		s.fail(record.status.ID, "failed to enqueue export")
		return nil, appErrors.Internal(err, "failed to enqueue export")
	}
	return s.snapshot(record.status.ID), nil
}

// JobType is the queue routing key for export rendering.
func (s *ExportService) JobType() string {
	return jobTypeRenderExport
}

// HandleJob renders a queued export, stores it and signs a download token.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	s.mu.Lock()
	record, ok := s.records[job.ID]
	if ok {
		record.status.Status = ExportProcessing
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("export record missing", zap.String("export_id", job.ID))
		return nil
	}

	err := s.produce(ctx, record)
	if err == nil {
		return nil
	}
	if job.Attempt >= s.cfg.MaxRetries {
		s.fail(job.ID, err.Error())
	} else {
		s.setState(job.ID, ExportQueued)
	}
	return err
}

func (s *ExportService) produce(ctx context.Context, record *exportRecord) error {
	rendered, err := s.render(ctx, record.req.Report, record.format, record.req.Year)
	if err != nil {
		return err
	}
	name := record.status.ID + "/" + rendered.Filename
	path, err := s.storage.Save(name, rendered.Payload)
	if err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	token, expiresAt, err := s.signer.Sign(record.status.ID, name)
	if err != nil {
		_ = s.storage.Delete(name)
		return fmt.Errorf("sign export: %w", err)
	}

	url := strings.TrimRight(s.cfg.APIPrefix, "/") + "/exports/" + token
	s.mu.Lock()
	record.path = name
	record.token = token
	record.expiresAt = expiresAt
	record.status.Status = ExportFinished
	record.status.DownloadURL = &url
	record.status.ExpiresAt = &expiresAt
	record.status.Error = nil
	s.mu.Unlock()
	s.logger.Info("export stored", zap.String("export_id", record.status.ID), zap.String("path", path))
	return nil
}

// Status returns an export's state. Members only see their own exports.
func (s *ExportService) Status(_ context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatus, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	if role == models.RoleMember && record.ownerID != actorID {
		return nil, appErrors.ErrForbidden
	}
	return s.snapshot(id), nil
}

// ResolveDownload verifies token and loads the stored file.
func (s *ExportService) ResolveDownload(_ context.Context, token string) (*RenderedExport, error) {
	if s.signer == nil || s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	claims, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}

	s.mu.RLock()
	record, ok := s.records[claims.ExportID]
	var path, recordToken string
	var format export.Format
	if ok {
		path, recordToken, format = record.path, record.token, record.format
	}
	s.mu.RUnlock()
	if !ok || recordToken != token {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}

	payload, err := s.storage.Read(path)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to read export")
	}
	filename := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		filename = path[idx+1:]
	}
	return &RenderedExport{Filename: filename, ContentType: format.ContentType(), Payload: payload}, nil
}

// Cleanup removes stored files older than the result TTL and forgets expired records.
func (s *ExportService) Cleanup(_ context.Context) int {
	removed := 0
	if s.storage != nil {
		paths, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
		if err != nil {
			s.logger.Warn("export cleanup failed", zap.Error(err))
		}
		removed = len(paths)
	}
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	s.mu.Lock()
	for id, record := range s.records {
		if record.status.CreatedAt.Before(cutoff) {
			delete(s.records, id)
		}
	}
	s.mu.Unlock()
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Cleanup(ctx); n > 0 {
					s.logger.Info("expired exports removed", zap.Int("files", n))
				}
			}
		}
	}()
}

func (s *ExportService) snapshot(id string) *dto.ExportStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil
	}
	status := record.status
	return &status
}

func (s *ExportService) setState(id, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.status.Status = state
	}
}

func (s *ExportService) fail(id, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.status.Status = ExportFailed
		record.status.Error = &msg
	}
}

func (s *ExportService) buildDataset(ctx context.Context, report string, year int) (export.Dataset, error) {
	switch report {
	case ReportCases:
		return s.casesDataset(ctx)
	case ReportMembers:
		return s.membersDataset(ctx)
	case ReportFunds:
		return s.fundsDataset(ctx)
	case ReportMonthly:
		return s.monthlyDataset(ctx, year)
	default:
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "unsupported report")
	}
}

func (s *ExportService) casesDataset(ctx context.Context) (export.Dataset, error) {
	cases, err := s.source.Cases(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].CreatedAt.Before(cases[j].CreatedAt) })
	data := export.Dataset{
		Title:   "Assistance Cases",
		Headers: []string{"Case ID", "Title", "Type", "Status", "Requested", "Approved", "Disbursed", "Remaining", "Created"},
	}
	for _, c := range cases {
		approved := ""
		if c.ApprovedAmount.Valid {
			approved = c.ApprovedAmount.Decimal.StringFixed(2)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Case ID":   c.ID,
			"Title":     c.Title,
			"Type":      string(c.CaseType),
			"Status":    string(c.Status),
			"Requested": c.RequestedAmount.StringFixed(2),
			"Approved":  approved,
			"Disbursed": c.DisbursedAmount.StringFixed(2),
			"Remaining": c.Remaining().StringFixed(2),
			"Created":   c.CreatedAt.Format("2006-01-02"),
		})
	}
	return data, nil
}

func (s *ExportService) membersDataset(ctx context.Context) (export.Dataset, error) {
	members, err := s.source.Members(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{
		Title:   "Member Balances",
		Headers: []string{"Member", "Active", "Takaful Collected", "Takaful Pending", "Plus Collected", "Plus Pending", "Total Collected", "Total Pending"},
	}
	for _, m := range members {
		data.Rows = append(data.Rows, map[string]string{
			"Member":            m.FullName,
			"Active":            strconv.FormatBool(m.Active),
			"Takaful Collected": m.Takaful.Collected.StringFixed(2),
			"Takaful Pending":   m.Takaful.Pending.StringFixed(2),
			"Plus Collected":    m.Plus.Collected.StringFixed(2),
			"Plus Pending":      m.Plus.Pending.StringFixed(2),
			"Total Collected":   m.TotalCollected.StringFixed(2),
			"Total Pending":     m.TotalPending.StringFixed(2),
		})
	}
	return data, nil
}

func (s *ExportService) fundsDataset(ctx context.Context) (export.Dataset, error) {
	funds, err := s.source.Funds(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{
		Title:   "Fund Summary",
		Headers: []string{"Fund", "Collected", "Pending", "Historical Paid", "Historical Pending", "Disbursed", "Available"},
	}
	for _, f := range funds {
		data.Rows = append(data.Rows, map[string]string{
			"Fund":               string(f.Fund),
			"Collected":          f.Collected.StringFixed(2),
			"Pending":            f.Pending.StringFixed(2),
			"Historical Paid":    f.HistoricalPaid.StringFixed(2),
			"Historical Pending": f.HistoricalPending.StringFixed(2),
			"Disbursed":          f.Disbursed.StringFixed(2),
			"Available":          f.Available.StringFixed(2),
		})
	}
	return data, nil
}

func (s *ExportService) monthlyDataset(ctx context.Context, year int) (export.Dataset, error) {
	months, err := s.source.Monthly(ctx, year)
	if err != nil {
		return export.Dataset{}, err
	}
	title := "Monthly Dues"
	if len(months) > 0 {
		title = "Monthly Dues " + months[0].Period[:4]
	}
	data := export.Dataset{
		Title:   title,
		Headers: []string{"Period", "Takaful Paid", "Takaful Pending", "Plus Paid", "Plus Pending"},
	}
	for _, m := range months {
		data.Rows = append(data.Rows, map[string]string{
			"Period":          m.Period,
			"Takaful Paid":    m.TakafulPaid.StringFixed(2),
			"Takaful Pending": m.TakafulPending.StringFixed(2),
			"Plus Paid":       m.PlusPaid.StringFixed(2),
			"Plus Pending":    m.PlusPending.StringFixed(2),
		})
	}
	return data, nil
}
