package handler

import (
	"net/http"
	"time"

	"paygate/config"
	"paygate/internal/domain"

	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

type HealthHandler struct {
	cfg  *config.Config
	mode string
	now  func() time.Time
}

func NewHealthHandler(cfg *config.Config, mode string) *HealthHandler {
	return &HealthHandler{cfg: cfg, mode: mode, now: time.Now}
}

// Root is the service banner.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Payment API is running",
		"version":     Version,
		"environment": h.cfg.Server.Env,
		"mode":        h.mode,
		"timestamp":   h.timestamp(),
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    "healthy",
		"timestamp": h.timestamp(),
	})
}

// NoRoute answers unknown paths with the standard envelope.
func (h *HealthHandler) NoRoute(c *gin.Context) {
	fail(c, http.StatusNotFound, domain.CodeNotFound, "Route "+c.Request.Method+" "+c.Request.URL.Path+" not found")
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
