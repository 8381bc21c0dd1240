package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"paygate/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

// render writes obj with sonic, which passes raw metadata through untouched.
func render(c *gin.Context, status int, obj interface{}) {
	b, err := sonic.Marshal(obj)
	if err != nil {
		slog.Error("[HTTP] encode response", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   gin.H{"code": domain.CodeInternal, "message": "Failed to encode response"},
		})
		return
	}
	c.Data(status, "application/json; charset=utf-8", b)
}

func success(c *gin.Context, status int, data interface{}) {
	render(c, status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	render(c, status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

func validationFailed(c *gin.Context, verr *domain.ValidationError) {
	render(c, http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    domain.CodeValidation,
			"message": "Invalid payment request",
			"details": verr.Fields,
		},
	})
}

func notFound(c *gin.Context, id string) {
	fail(c, http.StatusNotFound, domain.CodePaymentNotFound, fmt.Sprintf("Payment with ID %s not found", id))
}

// respondError maps service errors onto the envelope. Upstream and internal
// details are logged, never returned.
func respondError(c *gin.Context, err error, id, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		validationFailed(c, verr)
	case errors.Is(err, domain.ErrPaymentNotFound):
		notFound(c, id)
	case errors.Is(err, domain.ErrUnsupported):
		fail(c, http.StatusNotImplemented, domain.CodeUnsupported, "Operation not supported in this mode")
	case errors.Is(err, domain.ErrUpstream):
		slog.Error("[Payments] provider failure", "path", c.FullPath(), "id", id, "err", err)
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, domain.CodeProviderError, fallback)
	default:
		slog.Error("[Payments] internal failure", "path", c.FullPath(), "id", id, "err", err)
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, domain.CodeInternal, fallback)
	}
}
