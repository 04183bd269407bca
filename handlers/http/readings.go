package httpHandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/usecases"

	"github.com/gin-gonic/gin"
)

// Publisher fans a message out to live feed subscribers.
type Publisher interface {
	Broadcast(payload []byte) int
}

type ReadingHandler struct {
	uc            *usecases.ReadingsUseCase
	feed          Publisher
	historyWindow time.Duration
	// maxWindow caps ?window= at the retention window.
	maxWindow time.Duration
}

func NewReadingHandler(uc *usecases.ReadingsUseCase, feed Publisher, historyWindow, retentionWindow time.Duration) *ReadingHandler {
	return &ReadingHandler{uc: uc, feed: feed, historyWindow: historyWindow, maxWindow: retentionWindow}
}

type readingRequest struct {
	Temperature  *float64   `json:"temperature" binding:"required"`
	Humidity     *float64   `json:"humidity" binding:"required"`
	SoilMoisture *int       `json:"soil_moisture" binding:"required"`
	WaterFlow    *float64   `json:"water_flow" binding:"required"`
	ValveState   *bool      `json:"valve_state"`
	Timestamp    *time.Time `json:"timestamp"`
}

type readingEvent struct {
	Type string `json:"type"`
	entities.Reading
}

// POST /api/update_readings
func (h *ReadingHandler) UpdateReadings(c *gin.Context) {
	var req readingRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	reading, err := h.uc.Ingest(c.Request.Context(), usecases.ReadingInput{
		Temperature:  req.Temperature,
		Humidity:     req.Humidity,
		SoilMoisture: req.SoilMoisture,
		WaterFlow:    req.WaterFlow,
		ValveState:   req.ValveState,
		Timestamp:    req.Timestamp,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.feed != nil {
		if b, err := json.Marshal(readingEvent{Type: "reading", Reading: *reading}); err == nil {
			h.feed.Broadcast(b)
		} else {
			logging.Component("http").Error("encode reading event", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "id": reading.ID})
}

// GET /api/readings
func (h *ReadingHandler) GetLatest(c *gin.Context) {
	reading, err := h.uc.Latest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if reading == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, reading)
}

// GET /api/readings/history?window=1h
func (h *ReadingHandler) GetHistory(c *gin.Context) {
	window := h.historyWindow
	if w := c.Query("window"); w != "" {
		d, err := time.ParseDuration(w)
		if err != nil {
			respondError(c, usecases.NewValidationError("window", "must be a duration such as 30m or 2h"))
			return
		}
		if h.maxWindow > 0 && d > h.maxWindow {
			respondError(c, usecases.NewValidationError("window", "must not exceed retention window "+h.maxWindow.String()))
			return
		}
		window = d
	}

	readings, err := h.uc.History(c.Request.Context(), window)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}
