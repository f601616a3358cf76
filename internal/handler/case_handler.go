package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/pkg/response"
)

type caseService interface {
	Submit(ctx context.Context, req dto.SubmitCaseRequest, requesterID string, meta models.AuditMeta) (*models.AssistanceCase, error)
	Approve(ctx context.Context, id string, amount decimal.Decimal, approverID string, meta models.AuditMeta) (*models.AssistanceCase, error)
	Reject(ctx context.Context, id, reason, actorID string, meta models.AuditMeta) (*models.AssistanceCase, error)
	Complete(ctx context.Context, id, actorID string, meta models.AuditMeta) (*models.AssistanceCase, error)
	RecordDisbursement(ctx context.Context, caseID string, req dto.RecordDisbursementRequest, disbursedBy string, meta models.AuditMeta) (*models.DisbursementResult, error)
	GetCase(ctx context.Context, id string) (*dto.CaseDetail, error)
	ListCases(ctx context.Context, filter models.CaseFilter) ([]models.AssistanceCase, *models.Pagination, error)
	ListDisbursements(ctx context.Context, caseID string) ([]models.Disbursement, error)
}

// CaseHandler exposes the assistance case lifecycle over HTTP.
type CaseHandler struct {
	service caseService
}

// NewCaseHandler constructs the handler.
func NewCaseHandler(service caseService) *CaseHandler {
	return &CaseHandler{service: service}
}

// Submit godoc
// @Summary Submit an assistance case
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body dto.SubmitCaseRequest true "Case"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SubmitCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid case payload"))
		return
	}
	created, err := h.service.Submit(c.Request.Context(), req, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List cases
// @Tags Cases
// @Produce json
// @Param status query string false "pending|approved|rejected|completed"
// @Param case_type query string false "Case type"
// @Param beneficiary_id query string false "Beneficiary"
// @Param search query string false "Title search"
// @Param sort_by query string false "created_at|requested_amount|status"
// @Param sort_order query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	filter := models.CaseFilter{
		BeneficiaryID: c.Query("beneficiary_id"),
		Search:        c.Query("search"),
		SortBy:        c.Query("sort_by"),
		SortOrder:     c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := models.CaseStatus(strings.ToLower(status))
		filter.Status = &s
	}
	if caseType := strings.TrimSpace(c.Query("case_type")); caseType != "" {
		t := models.CaseType(strings.ToLower(caseType))
		filter.CaseType = &t
	}

	items, pagination, err := h.service.ListCases(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get case detail with disbursements
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	detail, err := h.service.GetCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Approve godoc
// @Summary Approve a pending case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ApproveCaseRequest true "Approved amount"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cases/{id}/approve [post]
func (h *CaseHandler) Approve(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ApproveCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid approval payload"))
		return
	}
	updated, err := h.service.Approve(c.Request.Context(), c.Param("id"), req.ApprovedAmount, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Reject godoc
// @Summary Reject a pending case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.RejectCaseRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cases/{id}/reject [post]
func (h *CaseHandler) Reject(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RejectCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid rejection payload"))
		return
	}
	updated, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Complete godoc
// @Summary Close a fully disbursed case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cases/{id}/complete [post]
func (h *CaseHandler) Complete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	updated, err := h.service.Complete(c.Request.Context(), c.Param("id"), claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// RecordDisbursement godoc
// @Summary Record a payout against an approved case
// @Tags Disbursements
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.RecordDisbursementRequest true "Disbursement"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /cases/{id}/disbursements [post]
func (h *CaseHandler) RecordDisbursement(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RecordDisbursementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid disbursement payload"))
		return
	}
	result, err := h.service.RecordDisbursement(c.Request.Context(), c.Param("id"), req, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListDisbursements godoc
// @Summary List a case's disbursements
// @Tags Disbursements
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/disbursements [get]
func (h *CaseHandler) ListDisbursements(c *gin.Context) {
	items, err := h.service.ListDisbursements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
