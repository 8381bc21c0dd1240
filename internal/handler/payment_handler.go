package handler

import (
	"errors"
	"io"
	"net/http"

	"paygate/internal/domain"
	"paygate/internal/models"
	"paygate/internal/schema"
	"paygate/internal/service"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20

type PaymentHandler struct {
	svc service.PaymentService
}

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Create validates the body and creates a payment. Nothing is created when validation fails.
func (h *PaymentHandler) Create(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		verr := &domain.ValidationError{}
		verr.Add("body", "Request body too large or unreadable")
		validationFailed(c, verr)
		return
	}
	req, err := schema.ParsePayment(body)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			validationFailed(c, verr)
			return
		}
		respondError(c, err, "", "Failed to create payment")
		return
	}
	p, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "", "Failed to create payment")
		return
	}
	success(c, http.StatusCreated, p)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, id, "Failed to fetch payment")
		return
	}
	success(c, http.StatusOK, p)
}

// List returns every payment in creation order. The result is not paginated.
func (h *PaymentHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "", "Failed to list payments")
		return
	}
	if list == nil {
		list = []models.Payment{}
	}
	render(c, http.StatusOK, gin.H{
		"success": true,
		"data":    list,
		"meta":    gin.H{"count": len(list)},
	})
}

func (h *PaymentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, id, "Failed to delete payment")
		return
	}
	render(c, http.StatusOK, gin.H{"success": true, "message": "Payment deleted successfully"})
}
