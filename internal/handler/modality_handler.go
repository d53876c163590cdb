package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/internal/service"
	"github.com/noah-isme/academia-api/pkg/response"
)

type modalityService interface {
	List(ctx context.Context) ([]models.Modality, error)
	Create(ctx context.Context, in service.ModalityInput) (*models.Modality, error)
}

// ModalityHandler exposes the modality catalogue.
type ModalityHandler struct {
	service modalityService
}

// NewModalityHandler constructs a modality handler.
func NewModalityHandler(svc modalityService) *ModalityHandler {
	return &ModalityHandler{service: svc}
}

// List godoc
// @Summary List modalities
// @Tags Modalities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /modalities [get]
func (h *ModalityHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create modality
// @Tags Modalities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ModalityInput true "Modality"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /modalities [post]
func (h *ModalityHandler) Create(c *gin.Context) {
	var in service.ModalityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	modality, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, modality)
}
