package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/pkg/response"
)

type beneficiaryService interface {
	CreateBeneficiary(ctx context.Context, req dto.BeneficiaryRequest, actorID string, meta models.AuditMeta) (*models.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, id string, req dto.BeneficiaryRequest, actorID string, meta models.AuditMeta) (*models.Beneficiary, error)
	GetBeneficiary(ctx context.Context, id string) (*models.Beneficiary, error)
	ListBeneficiaries(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, *models.Pagination, error)
}

// BeneficiaryHandler exposes beneficiary endpoints. Beneficiaries are never deleted.
type BeneficiaryHandler struct {
	service beneficiaryService
}

// NewBeneficiaryHandler constructs the handler.
func NewBeneficiaryHandler(service beneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{service: service}
}

// List godoc
// @Summary List beneficiaries
// @Tags Beneficiaries
// @Produce json
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /beneficiaries [get]
func (h *BeneficiaryHandler) List(c *gin.Context) {
	filter := models.BeneficiaryFilter{Search: c.Query("search")}
	filter.Page, filter.PageSize = pageParams(c)
	items, pagination, err := h.service.ListBeneficiaries(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get beneficiary
// @Tags Beneficiaries
// @Produce json
// @Param id path string true "Beneficiary ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /beneficiaries/{id} [get]
func (h *BeneficiaryHandler) Get(c *gin.Context) {
	b, err := h.service.GetBeneficiary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b, nil)
}

// Create godoc
// @Summary Register beneficiary
// @Tags Beneficiaries
// @Accept json
// @Produce json
// @Param payload body dto.BeneficiaryRequest true "Beneficiary"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /beneficiaries [post]
func (h *BeneficiaryHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.BeneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid beneficiary payload"))
		return
	}
	b, err := h.service.CreateBeneficiary(c.Request.Context(), req, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, b)
}

// Update godoc
// @Summary Replace beneficiary details
// @Tags Beneficiaries
// @Accept json
// @Produce json
// @Param id path string true "Beneficiary ID"
// @Param payload body dto.BeneficiaryRequest true "Beneficiary"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /beneficiaries/{id} [put]
func (h *BeneficiaryHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.BeneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid beneficiary payload"))
		return
	}
	b, err := h.service.UpdateBeneficiary(c.Request.Context(), c.Param("id"), req, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b, nil)
}
