package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academia-api/internal/dto"
	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/internal/service"
	"github.com/noah-isme/academia-api/pkg/response"
)

type paymentService interface {
	Get(ctx context.Context, id string) (*dto.PaymentView, error)
	Create(ctx context.Context, in service.PaymentInput) (*dto.PaymentView, error)
	Update(ctx context.Context, id string, in service.PaymentInput) (*dto.PaymentView, error)
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, filter models.PaymentHistoryFilter) (*dto.PaymentList, bool, error)
	Overdue(ctx context.Context) (*dto.PaymentList, bool, error)
}

type exportService interface {
	History(ctx context.Context, filter models.PaymentHistoryFilter, format service.ExportFormat) (*service.ExportFile, error)
	Overdue(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

// PaymentHandler serves payment records, the history and the overdue report.
type PaymentHandler struct {
	payments paymentService
	exports  exportService
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(payments paymentService, exports exportService) *PaymentHandler {
	return &PaymentHandler{payments: payments, exports: exports}
}

// Create godoc
// @Summary Record payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PaymentInput true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var in service.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	payment, err := h.payments.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Update godoc
// @Summary Update payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param payload body service.PaymentInput true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	var in service.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	payment, err := h.payments.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Delete godoc
// @Summary Delete payment
// @Tags Payments
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	if err := h.payments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Payment history
// @Description Payments ordered by payment date, newest first, with an optional inclusive date range
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments/history [get]
func (h *PaymentHandler) History(c *gin.Context) {
	filter, err := historyFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, hit, err := h.payments.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, listMeta(list, hit))
}

// Overdue godoc
// @Summary Overdue payments
// @Description Unpaid payments whose due date is today or earlier, oldest first
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /payments/overdue [get]
func (h *PaymentHandler) Overdue(c *gin.Context) {
	list, hit, err := h.payments.Overdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, listMeta(list, hit))
}

// ExportHistory godoc
// @Summary Export payment history
// @Tags Payments
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /payments/history/export [get]
func (h *PaymentHandler) ExportHistory(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := historyFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.History(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// ExportOverdue godoc
// @Summary Export overdue payments
// @Tags Payments
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /payments/overdue/export [get]
func (h *PaymentHandler) ExportOverdue(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Overdue(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func listMeta(list *dto.PaymentList, hit bool) map[string]interface{} {
	meta := map[string]interface{}{"cache_hit": hit}
	if list != nil {
		meta["total_amount"] = list.Total.StringFixed(2)
		meta["count"] = len(list.Items)
	}
	return meta
}
