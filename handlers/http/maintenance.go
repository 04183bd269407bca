package httpHandler

import (
	"net/http"
	"time"

	"github.com/plantCo2/water-device/services"
	"github.com/plantCo2/water-device/usecases"

	"github.com/gin-gonic/gin"
)

type MaintenanceHandler struct {
	retention *services.RetentionService
}

func NewMaintenanceHandler(retention *services.RetentionService) *MaintenanceHandler {
	return &MaintenanceHandler{retention: retention}
}

// POST /api/maintenance/sweep?retention=24h
// Meant for cron or another external scheduler.
func (h *MaintenanceHandler) Sweep(c *gin.Context) {
	var window time.Duration
	if r := c.Query("retention"); r != "" {
		d, err := time.ParseDuration(r)
		if err != nil || d <= 0 {
			respondError(c, usecases.NewValidationError("retention", "must be a positive duration such as 24h"))
			return
		}
		window = d
	}

	deleted, applied, err := h.retention.Run(c.Request.Context(), window)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "deleted": deleted, "retention": applied.String()})
}
