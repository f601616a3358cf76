package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/internal/service"
	"github.com/noah-isme/family-fund-api/pkg/response"
)

type exportService interface {
	Request(ctx context.Context, req dto.ExportRequest, ownerID string) (*dto.ExportStatus, error)
	Status(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatus, error)
	ResolveDownload(ctx context.Context, token string) (*service.RenderedExport, error)
}

// ExportHandler serves queued report exports and their signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Request godoc
// @Summary Queue a report export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /reports/exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid export payload"))
		return
	}
	status, err := h.service.Request(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, status, nil)
}

// Status godoc
// @Summary Export status
// @Tags Exports
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	status, err := h.service.Status(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export through its signed link
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}
