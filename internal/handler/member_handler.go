package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
	"github.com/noah-isme/family-fund-api/pkg/response"
)

type memberService interface {
	Create(ctx context.Context, req dto.CreateMemberRequest) (*models.Member, error)
	Get(ctx context.Context, id string) (*models.Member, error)
	List(ctx context.Context, filter models.MemberFilter) ([]models.Member, *models.Pagination, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
	MarkPaid(ctx context.Context, id string, req dto.MarkPaidRequest, actorID string, meta models.AuditMeta) (*models.Payment, error)
}

type duesGenerator interface {
	Generate(ctx context.Context, req dto.GenerateDuesRequest) (*dto.GenerateDuesResult, error)
}

// MemberHandler serves members and their monthly dues.
type MemberHandler struct {
	members memberService
	dues    duesGenerator
}

// NewMemberHandler constructs the handler.
func NewMemberHandler(members memberService, dues duesGenerator) *MemberHandler {
	return &MemberHandler{members: members, dues: dues}
}

// Create godoc
// @Summary Register a contributing member
// @Tags Members
// @Accept json
// @Produce json
// @Param payload body dto.CreateMemberRequest true "Member"
// @Success 201 {object} response.Envelope
// @Router /members [post]
func (h *MemberHandler) Create(c *gin.Context) {
	var req dto.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid member payload"))
		return
	}
	m, err := h.members.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// List godoc
// @Summary List members
// @Tags Members
// @Produce json
// @Param active query bool false "Active filter"
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Router /members [get]
func (h *MemberHandler) List(c *gin.Context) {
	filter := models.MemberFilter{Search: c.Query("search")}
	filter.Page, filter.PageSize = pageParams(c)
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	items, pagination, err := h.members.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get member
// @Tags Members
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} response.Envelope
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *gin.Context) {
	m, err := h.members.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, m, nil)
}

// ListPayments godoc
// @Summary List monthly dues
// @Tags Payments
// @Produce json
// @Param member_id query string false "Member"
// @Param fund query string false "takaful|plus"
// @Param status query string false "pending|paid"
// @Param from query string false "First month (YYYY-MM)"
// @Param to query string false "Last month, inclusive (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *MemberHandler) ListPayments(c *gin.Context) {
	filter := models.PaymentFilter{MemberID: c.Query("member_id")}
	filter.Page, filter.PageSize = pageParams(c)
	if fund := strings.TrimSpace(c.Query("fund")); fund != "" {
		f := models.Fund(strings.ToLower(fund))
		filter.Fund = &f
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := models.PaymentStatus(strings.ToLower(status))
		filter.Status = &s
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM"))
			return
		}
		to = to.AddDate(0, 1, 0)
		filter.To = &to
	}

	items, pagination, err := h.members.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkPaid godoc
// @Summary Settle a pending due
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body dto.MarkPaidRequest false "Payment details"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{id}/pay [post]
func (h *MemberHandler) MarkPaid(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.MarkPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid payment payload"))
			return
		}
	}
	paid, err := h.members.MarkPaid(c.Request.Context(), c.Param("id"), req, claims.UserID, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paid, nil)
}

// GenerateDues godoc
// @Summary Create pending dues for a month
// @Description Idempotent; rows that already exist for the month are left alone.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.GenerateDuesRequest false "Month (YYYY-MM), defaults to current"
// @Success 200 {object} response.Envelope
// @Router /payments/generate [post]
func (h *MemberHandler) GenerateDues(c *gin.Context) {
	var req dto.GenerateDuesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid dues payload"))
			return
		}
	}
	result, err := h.dues.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
