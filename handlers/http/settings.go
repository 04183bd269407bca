package httpHandler

import (
	"net/http"

	"github.com/plantCo2/water-device/usecases"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	uc *usecases.SettingsUseCase
}

func NewSettingsHandler(uc *usecases.SettingsUseCase) *SettingsHandler {
	return &SettingsHandler{uc: uc}
}

type settingsRequest struct {
	Threshold        *int  `json:"threshold" binding:"required"`
	WateringDuration *int  `json:"watering_duration" binding:"required"`
	TimerEnabled     *bool `json:"timer_enabled" binding:"required"`
	TimerHour        *int  `json:"timer_hour" binding:"required"`
	TimerMinute      *int  `json:"timer_minute" binding:"required"`
}

// GET /api/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, err := h.uc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// POST /api/settings replaces every field and returns the stored record.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	s, err := h.uc.Update(c.Request.Context(), usecases.SettingsInput{
		Threshold:        req.Threshold,
		WateringDuration: req.WateringDuration,
		TimerEnabled:     req.TimerEnabled,
		TimerHour:        req.TimerHour,
		TimerMinute:      req.TimerMinute,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
